package utils

import (
	"testing"

	"go.viam.com/test"
)

type engineAttrs struct {
	Backend string `json:"backend"`
	Target  string `json:"target"`
	Threads int    `json:"threads"`
}

func TestAttributeMapDecode(t *testing.T) {
	attrs := AttributeMap{"backend": "opencv", "target": "cpu", "threads": "4"}
	test.That(t, attrs.Has("backend"), test.ShouldBeTrue)
	test.That(t, attrs.Has("device"), test.ShouldBeFalse)
	test.That(t, attrs.String("target"), test.ShouldEqual, "cpu")
	test.That(t, attrs.String("threads"), test.ShouldEqual, "4")
	test.That(t, attrs.String("missing"), test.ShouldEqual, "")

	var out engineAttrs
	test.That(t, attrs.Decode(&out), test.ShouldBeNil)
	test.That(t, out, test.ShouldResemble, engineAttrs{Backend: "opencv", Target: "cpu", Threads: 4})

	err := AttributeMap{"backnd": "opencv"}.Decode(&out)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "backnd")

	var nilMap AttributeMap
	out = engineAttrs{}
	test.That(t, nilMap.Decode(&out), test.ShouldBeNil)
	test.That(t, out, test.ShouldResemble, engineAttrs{})
}

func TestClampInt(t *testing.T) {
	test.That(t, ClampInt(120, 0, 99), test.ShouldEqual, 99)
	test.That(t, ClampInt(-3, 0, 99), test.ShouldEqual, 0)
}

func TestUnexpectedTypeError(t *testing.T) {
	err := NewUnexpectedTypeError("", 3)
	test.That(t, err.Error(), test.ShouldEqual, "expected string but got int")
}
