package app

import (
	"fmt"
	"io"

	"github.com/vk/metasched/internal/algebra"
	"github.com/vk/metasched/internal/suitehcl"
)

// Simplify parses one dependency expression, simplifies it and writes the
// result with the complexity before and after.
func Simplify(w io.Writer, src string) error {
	dep, err := suitehcl.ParseDependency(src)
	if err != nil {
		return fmt.Errorf("failed to parse expression: %w", err)
	}
	simplified := algebra.Simplify(dep)

	_, err = fmt.Fprintf(w, "input:      %s\nsimplified: %s\ncomplexity: %g -> %g\n",
		dep, simplified, algebra.Complexity(dep), algebra.Complexity(simplified))
	return err
}
