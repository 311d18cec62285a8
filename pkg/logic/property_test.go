package logic

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestCompile_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("a singleton group compiles like its child", prop.ForAll(
		func(subject string, n int, useOr bool) bool {
			child := NewRule("c", "host."+subject, ">", Literal, n)
			op := And
			if useOr {
				op = Or
			}
			return Compile(NewGroup("g", op, child)) == Compile(child)
		},
		gen.Identifier(),
		gen.IntRange(-1000, 1000),
		gen.Bool(),
	))

	properties.Property("an or group of two wraps both children", prop.ForAll(
		func(left, right string, n int) bool {
			c1 := NewRule("a", "host."+left, "==", Literal, n)
			c2 := NewRule("b", "actor."+right, "contains", Literal, "x"+left)
			got := Compile(NewGroup("g", Or, c1, c2))
			return got == "("+Compile(c1)+" || "+Compile(c2)+")"
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.IntRange(0, 1000),
	))

	properties.Property("references are never quoted", prop.ForAll(
		func(path string) bool {
			got := Compile(NewRule("r", "host.x", "==", Reference, "actor."+path))
			return got == "host.x == actor."+path
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
