package suitehcl

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// timeLayouts are the accepted spellings of a cycle time. Times without a
// zone are UTC.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006010215",
}

// parseTime parses a cycle time.
func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: expected RFC 3339, e.g. 2024-01-01T00:00:00Z", s)
}

// parseDuration accepts Go durations plus a whole-day suffix, e.g. "-6h",
// "1h30m", "2d".
func parseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// evalString evaluates expr with ctx and converts the result to a Go string.
func evalString(expr hcl.Expression, ctx *hcl.EvalContext, what string) (string, hcl.Diagnostics) {
	val, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return "", diags
	}
	if val.IsNull() || !val.IsWhollyKnown() {
		return "", append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid " + what,
			Detail:   fmt.Sprintf("The %s must be a known, non-null string.", what),
			Subject:  expr.Range().Ptr(),
		})
	}
	strVal, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid " + what,
			Detail:   fmt.Sprintf("The %s must be a string: %s.", what, err),
			Subject:  expr.Range().Ptr(),
		})
	}
	var s string
	if err := gocty.FromCtyValue(strVal, &s); err != nil {
		return "", append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid " + what,
			Detail:   err.Error(),
			Subject:  expr.Range().Ptr(),
		})
	}
	return s, diags
}

// evalDuration evaluates expr as a duration string.
func evalDuration(expr hcl.Expression, ctx *hcl.EvalContext, what string) (time.Duration, hcl.Diagnostics) {
	s, diags := evalString(expr, ctx, what)
	if diags.HasErrors() {
		return 0, diags
	}
	d, err := parseDuration(s)
	if err != nil {
		return 0, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid " + what,
			Detail:   err.Error(),
			Subject:  expr.Range().Ptr(),
		})
	}
	return d, diags
}

// evalBool evaluates expr as a boolean.
func evalBool(expr hcl.Expression, ctx *hcl.EvalContext, what string) (bool, hcl.Diagnostics) {
	val, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return false, diags
	}
	var b bool
	if err := gocty.FromCtyValue(val, &b); err != nil {
		return false, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid " + what,
			Detail:   fmt.Sprintf("The %s must be a boolean: %s.", what, err),
			Subject:  expr.Range().Ptr(),
		})
	}
	return b, diags
}
