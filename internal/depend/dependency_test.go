package depend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	d1 = Completion(NewPath(0, "a"))
	d2 = Completion(NewPath(0, "b"))
	d3 = Completion(NewPath(0, "c"))
)

func TestNewAnd_RejectsEmpty(t *testing.T) {
	_, err := NewAnd()
	require.ErrorIs(t, err, ErrEmptyOperands)

	_, err = NewOr()
	require.ErrorIs(t, err, ErrEmptyOperands)

	assert.Panics(t, func() { MustAnd() })
}

func TestEqual(t *testing.T) {
	testCases := []struct {
		name  string
		a, b  Dependency
		equal bool
	}{
		{name: "same leaf", a: d1, b: Completion(NewPath(0, "a")), equal: true},
		{name: "different status", a: d1, b: State{Target: NewPath(0, "a"), Status: Running}, equal: false},
		{name: "operand order matters", a: MustAnd(d1, d2), b: MustAnd(d2, d1), equal: false},
		{name: "same connective", a: MustOr(d1, Not{Operand: d2}), b: MustOr(d1, Not{Operand: d2}), equal: true},
		{name: "and vs or", a: MustAnd(d1, d2), b: MustOr(d1, d2), equal: false},
		{name: "constants", a: True, b: True, equal: true},
		{name: "constant vs leaf", a: True, b: d1, equal: false},
		{name: "offset matters", a: CycleExists{Offset: -6 * time.Hour}, b: CycleExists{Offset: 6 * time.Hour}, equal: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.equal, Equal(tc.a, tc.b))
			assert.Equal(t, tc.equal, Key(tc.a) == Key(tc.b))
		})
	}
}

func TestCopy_IsIndependent(t *testing.T) {
	orig := MustAnd(d1, MustOr(d2, d3))
	cp := Copy(orig).(And)
	cp.Operands[0] = True
	cp.Operands[1].(Or).Operands[0] = False

	assert.True(t, Equal(orig, MustAnd(d1, MustOr(d2, d3))))
}

func TestShiftTime(t *testing.T) {
	expr := MustAnd(
		d1,
		Not{Operand: Event{Task: NewPath(-6*time.Hour, "b"), Name: "ready"}},
		CycleExists{Offset: -6 * time.Hour},
		TaskExists{Target: NewPath(0, "c")},
		True,
	)

	shifted := ShiftTime(expr, -6*time.Hour)

	expected := MustAnd(
		Completion(NewPath(-6*time.Hour, "a")),
		Not{Operand: Event{Task: NewPath(-12*time.Hour, "b"), Name: "ready"}},
		CycleExists{Offset: -12 * time.Hour},
		TaskExists{Target: NewPath(-6*time.Hour, "c")},
		True,
	)
	assert.True(t, Equal(expected, shifted), "got %s", shifted)
	assert.True(t, Equal(expr, ShiftTime(shifted, 6*time.Hour)))
}

func TestCombinators(t *testing.T) {
	testCases := []struct {
		name     string
		got      Dependency
		expected Dependency
	}{
		{name: "and false absorbs", got: AndOf(d1, False), expected: False},
		{name: "and true identity", got: AndOf(True, d1), expected: d1},
		{name: "and concatenates left", got: AndOf(MustAnd(d1, d2), d3), expected: MustAnd(d1, d2, d3)},
		{name: "and of two ands", got: AndOf(MustAnd(d1), MustAnd(d2, d3)), expected: MustAnd(d1, d2, d3)},
		{name: "and nests right", got: AndOf(d1, MustAnd(d2, d3)), expected: MustAnd(d1, MustAnd(d2, d3))},
		{name: "or true absorbs", got: OrOf(False, True), expected: True},
		{name: "or false identity", got: OrOf(d1, False), expected: d1},
		{name: "or concatenates left", got: OrOf(MustOr(d1, d2), d3), expected: MustOr(d1, d2, d3)},
		{name: "negate constant", got: Negate(True), expected: False},
		{name: "negate double", got: Negate(Negate(d1)), expected: d1},
		{name: "all of", got: AllOf(d1, True, d2), expected: MustAnd(d1, d2)},
		{name: "any of empty", got: AnyOf(), expected: False},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, Equal(tc.expected, tc.got), "expected %s, got %s", tc.expected, tc.got)
		})
	}
}

func TestString(t *testing.T) {
	expr := MustOr(
		MustAnd(State{Target: NewPath(-6*time.Hour, "gdas", "prep"), Status: Running}, Not{Operand: CycleExists{Offset: -6 * time.Hour}}),
		Event{Task: NewPath(0, "gdas", "fcst"), Name: "restart"},
		TaskExists{Target: NewPath(0, "gfs")},
		False,
	)
	assert.Equal(t,
		"( ( gdas.prep@-6h=running & ~ cycle_exists(-6h) ) | gdas.fcst:restart | gfs exists | FALSE )",
		expr.String())
}

func TestReferences(t *testing.T) {
	expr := MustAnd(d1, MustOr(Event{Task: NewPath(0, "b"), Name: "x"}, CycleExists{}), Not{Operand: TaskExists{Target: NewPath(0, "c")}})
	assert.Equal(t, []Path{NewPath(0, "a"), NewPath(0, "b"), NewPath(0, "c")}, References(expr))
	assert.Len(t, Leaves(expr), 4)
}

func TestParseStatus(t *testing.T) {
	for _, s := range []Status{Running, Completed, Failed} {
		got, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStatus("queued")
	assert.Error(t, err)
}
