package logger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	convey.Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		l, err := New(&buf, "info")
		convey.So(err, convey.ShouldBeNil)
		ctx := context.Background()

		convey.Convey("Info records carry fields and the caller", func() {
			l.Info(ctx, "connected", String("url", "ws://x"), Int("attempt", 2))
			out := buf.String()
			convey.So(out, convey.ShouldContainSubstring, "msg=connected")
			convey.So(out, convey.ShouldContainSubstring, "url=ws://x")
			convey.So(out, convey.ShouldContainSubstring, "attempt=2")
			convey.So(out, convey.ShouldContainSubstring, "logger_test.go")
		})

		convey.Convey("Debug records are filtered at info level", func() {
			l.Debug(ctx, "noisy")
			convey.So(buf.String(), convey.ShouldBeEmpty)
		})

		convey.Convey("Named loggers tag the component", func() {
			l.Named("gaze").Warn(ctx, "retry", Error(errors.New("refused")))
			out := buf.String()
			convey.So(out, convey.ShouldContainSubstring, "component=gaze")
			convey.So(out, convey.ShouldContainSubstring, "error=refused")
		})
	})

	convey.Convey("Given an unknown level", t, func() {
		_, err := New(&bytes.Buffer{}, "loud")
		convey.So(err, convey.ShouldNotBeNil)
	})

	convey.Convey("Nop discards everything", t, func() {
		l := Nop()
		l.Error(context.Background(), "ignored")
		convey.So(l.Named("x"), convey.ShouldNotBeNil)
	})
}

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"debug", "INFO", "", "warn", "warning", "error"} {
		if _, err := ParseLevel(name); err != nil {
			t.Errorf("ParseLevel(%q) = %v", name, err)
		}
	}
	if _, err := ParseLevel("trace"); err == nil {
		t.Error("ParseLevel(trace) should fail")
	}
}

func TestRing(t *testing.T) {
	convey.Convey("Given a ring of three lines", t, func() {
		r := NewRing(3)

		convey.Convey("Complete lines are kept in order", func() {
			fmt.Fprint(r, "a\nb\n")
			convey.So(r.Lines(), convey.ShouldResemble, []string{"a", "b"})
		})

		convey.Convey("Partial writes are joined", func() {
			fmt.Fprint(r, "hel")
			convey.So(r.Lines(), convey.ShouldBeEmpty)
			fmt.Fprint(r, "lo\n")
			convey.So(r.Lines(), convey.ShouldResemble, []string{"hello"})
		})

		convey.Convey("Old lines are evicted", func() {
			fmt.Fprint(r, strings.Repeat("x\n", 2)+"y\nz\n")
			convey.So(r.Lines(), convey.ShouldResemble, []string{"x", "y", "z"})
			convey.So(r.Total(), convey.ShouldEqual, 4)
		})

		convey.Convey("A logger can write into it", func() {
			l, err := New(r, "debug")
			convey.So(err, convey.ShouldBeNil)
			l.Debug(context.Background(), "sample")
			convey.So(r.Lines(), convey.ShouldHaveLength, 1)
			convey.So(r.Lines()[0], convey.ShouldContainSubstring, "msg=sample")
		})
	})
}
