package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat("xml")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLoggerOutput(t *testing.T) {
	convey.Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		convey.So(Init(WithFormat("json"), WithOutput(&buf)), convey.ShouldBeNil)
		ctx := context.Background()

		convey.Convey("When logging with a named logger and fields", func() {
			Named("oura").With(String("cycle_id", "c-1")).Warn(ctx, "resource empty",
				String("resource", "daily_sleep"),
				Error(errors.New("boom")),
			)

			var entry map[string]any
			convey.So(json.Unmarshal(buf.Bytes(), &entry), convey.ShouldBeNil)

			convey.Convey("Then the entry carries level, component and fields", func() {
				convey.So(entry["level"], convey.ShouldEqual, "WARN")
				convey.So(entry["msg"], convey.ShouldEqual, "resource empty")
				convey.So(entry["component"], convey.ShouldEqual, "oura")
				convey.So(entry["cycle_id"], convey.ShouldEqual, "c-1")
				convey.So(entry["resource"], convey.ShouldEqual, "daily_sleep")
				convey.So(entry["source"], convey.ShouldContainSubstring, "logger_test.go")
			})
		})

		convey.Convey("When the level filters debug output", func() {
			Get().Debug(ctx, "hidden")
			convey.So(buf.Len(), convey.ShouldEqual, 0)

			convey.So(SetLevelString("debug"), convey.ShouldBeNil)
			Get().Debug(ctx, "shown")
			convey.So(buf.String(), convey.ShouldContainSubstring, "shown")
			_ = SetLevelString("info")
		})

		convey.Convey("When an unknown level is given", func() {
			convey.So(SetLevelString("loud"), convey.ShouldNotBeNil)
		})
	})
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error(context.Background(), "discarded")
	if l.Named("x") == nil {
		t.Fatal("named nop logger is nil")
	}
}
