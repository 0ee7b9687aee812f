package scry

import (
	"time"

	"github.com/polydawn/refmt/obj/atlas"
)

// Atlas for serializing the types in scry_vocab.go (e.g. as the CLI's json output).
var Atlas = atlas.MustBuild(
	Event_atlasEntry,
	Event_Log_atlasEntry,
	Event_Result_atlasEntry,
	ObjectReport_atlasEntry,
	ErrorReport_atlasEntry,
	time_atlasEntry,
)

var (
	Event_atlasEntry        = atlas.BuildEntry(Event{}).StructMap().Autogenerate().Complete()
	Event_Log_atlasEntry    = atlas.BuildEntry(Event_Log{}).StructMap().Autogenerate().Complete()
	Event_Result_atlasEntry = atlas.BuildEntry(Event_Result{}).StructMap().Autogenerate().Complete()
	ObjectReport_atlasEntry = atlas.BuildEntry(ObjectReport{}).StructMap().Autogenerate().Complete()
	ErrorReport_atlasEntry  = atlas.BuildEntry(ErrorReport{}).StructMap().Autogenerate().Complete()
)

var time_atlasEntry = atlas.BuildEntry(time.Time{}).Transform().
	TransformMarshal(atlas.MakeMarshalTransformFunc(
		func(t time.Time) (string, error) {
			return t.UTC().Format(time.RFC3339Nano), nil
		})).
	TransformUnmarshal(atlas.MakeUnmarshalTransformFunc(
		func(s string) (time.Time, error) {
			return time.Parse(time.RFC3339Nano, s)
		})).
	Complete()
