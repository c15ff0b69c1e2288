package app_test

import (
	"context"
	"testing"

	"github.com/okian/rai/internal/app"
	"github.com/okian/rai/internal/config"
	"github.com/okian/rai/internal/domain/pipeline"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEngineFromConfig(t *testing.T) {
	ctx := context.Background()

	Convey("Given the default configuration", t, func() {
		cfg := config.New(ctx)
		engine := app.EngineFromConfig(cfg)

		Convey("Then the engine scores plays like a default engine", func() {
			got, gotOmission := engine.Process(samplePlay("p1"))
			want, wantOmission := pipeline.New().Process(samplePlay("p1"))
			So(gotOmission, ShouldBeNil)
			So(wantOmission, ShouldBeNil)
			So(len(got), ShouldEqual, len(want))
			for i := range got {
				So(got[i].Composite, ShouldEqual, want[i].Composite)
			}
		})
	})

	Convey("Given unknown override keys", t, func() {
		cfg := config.New(ctx)
		cfg.JerkThresholds = map[string]float64{"quarterback": 1.0}
		cfg.Norms = map[string]config.Norm{"sprint_speed": {Mean: 1, StdDev: 1}}
		engine := app.EngineFromConfig(cfg)

		Convey("Then they are dropped and scoring is unchanged", func() {
			got, _ := engine.Process(samplePlay("p2"))
			want, _ := pipeline.New().Process(samplePlay("p2"))
			for i := range got {
				So(got[i].Composite, ShouldEqual, want[i].Composite)
			}
		})
	})

	Convey("Given a normalization override", t, func() {
		cfg := config.New(ctx)
		cfg.Norms = map[string]config.Norm{
			"path_efficiency": {Mean: 0.5, StdDev: 0.5},
		}
		engine := app.EngineFromConfig(cfg)

		Convey("Then normalized efficiency shifts against the defaults", func() {
			got, _ := engine.Process(samplePlay("p3"))
			want, _ := pipeline.New().Process(samplePlay("p3"))
			So(got[0].Normalized.PathEfficiency, ShouldNotEqual, want[0].Normalized.PathEfficiency)
			So(got[0].Raw, ShouldResemble, want[0].Raw)
		})
	})
}
