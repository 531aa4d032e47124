package narrate

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/narrascope/internal/dom"
	"github.com/ppiankov/narrascope/internal/model"
	"github.com/ppiankov/narrascope/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/net/html"
)

func testRoot(t *testing.T) *html.Node {
	t.Helper()
	doc, err := dom.ParseString("<body><p>x</p></body>")
	require.NoError(t, err)
	root, err := doc.Container("body")
	require.NoError(t, err)
	return root
}

func TestTraverse_SkipsMarkersAndDuplicates(t *testing.T) {
	stub := &stubNarrator{script: []string{
		"document",
		"banner",
		"link, Home",
		"   ",
		"link, Home",
		"end of banner",
		"button",
		"end of document",
	}}
	tr := NewTraverser(stubHandle(stub), nil)

	var seen []int
	records, err := tr.Traverse(context.Background(), testRoot(t), func(r model.AnnouncementRecord, count int) {
		seen = append(seen, count)
	})
	require.NoError(t, err)

	want := []model.AnnouncementRecord{
		{Index: 0, Announcement: "banner", Category: model.CategoryLandmark},
		{Index: 1, Announcement: "link, Home", Category: model.CategoryInteractive},
		{Index: 2, Announcement: "button", Category: model.CategoryInteractive},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, 1, stub.starts)
	assert.Equal(t, 1, stub.stops)
}

func TestTraverse_IndexContiguity(t *testing.T) {
	stub := &stubNarrator{script: []string{"a", "b", "a", "c", "end of list", "d", "b", EndOfDocument}}
	records, err := NewTraverser(stubHandle(stub), nil).Traverse(context.Background(), testRoot(t), nil)
	require.NoError(t, err)

	require.Len(t, records, 4)
	unique := make(map[string]bool)
	for i, r := range records {
		assert.Equal(t, i, r.Index)
		assert.False(t, unique[r.Announcement], "duplicate announcement %q", r.Announcement)
		unique[r.Announcement] = true
	}
}

func TestTraverse_CeilingRespected(t *testing.T) {
	stub := &stubNarrator{endless: true}
	core, logs := observer.New(zapcore.DebugLevel)

	records, err := NewTraverser(stubHandle(stub), zap.New(core)).Traverse(context.Background(), testRoot(t), nil)
	require.NoError(t, err)

	assert.Len(t, records, MaxIterations)
	assert.Equal(t, MaxIterations, stub.nextCalls)
	assert.Equal(t, 1, stub.stops)
	assert.Equal(t, 1, logs.FilterMessage("narration iteration ceiling reached").Len())
}

func TestTraverse_EmptyDocument(t *testing.T) {
	stub := &stubNarrator{script: []string{"document", EndOfDocument}}
	records, err := NewTraverser(stubHandle(stub), nil).Traverse(context.Background(), testRoot(t), nil)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestTraverse_StartFailureStillStops(t *testing.T) {
	boom := errors.New("speech engine missing")
	stub := &stubNarrator{startErr: boom, script: []string{EndOfDocument}}

	records, err := NewTraverser(stubHandle(stub), nil).Traverse(context.Background(), testRoot(t), nil)

	var terr *TraversalError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, PhaseStart, terr.Phase)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, records)
	assert.Equal(t, 1, stub.stops)
}

func TestTraverse_NextFailureKeepsPartialRecords(t *testing.T) {
	stub := &stubNarrator{
		script:     []string{"one", "two", "three", EndOfDocument},
		nextErr:    errors.New("step failed"),
		nextFailAt: 2,
	}

	records, err := NewTraverser(stubHandle(stub), nil).Traverse(context.Background(), testRoot(t), nil)

	var terr *TraversalError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, PhaseNext, terr.Phase)
	assert.Equal(t, 1, terr.Iteration)
	require.Len(t, records, 2)
	assert.Equal(t, "two", records[1].Announcement)
	assert.Equal(t, 1, stub.stops)
}

func TestTraverse_ReadFailure(t *testing.T) {
	stub := &stubNarrator{readErr: errors.New("no phrase")}
	_, err := NewTraverser(stubHandle(stub), nil).Traverse(context.Background(), testRoot(t), nil)

	var terr *TraversalError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, PhaseRead, terr.Phase)
}

func TestTraverse_StopFailureSurfacesWhenNothingElseFailed(t *testing.T) {
	stub := &stubNarrator{script: []string{"one", EndOfDocument}, stopErr: errors.New("stuck")}
	records, err := NewTraverser(stubHandle(stub), nil).Traverse(context.Background(), testRoot(t), nil)

	var terr *TraversalError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, PhaseStop, terr.Phase)
	assert.Len(t, records, 1)
}

func TestTraverse_InitFailure(t *testing.T) {
	handle := util.NewLazy(func(context.Context) (Narrator, error) {
		return nil, ErrNarratorUnavailable
	})
	records, err := NewTraverser(handle, nil).Traverse(context.Background(), testRoot(t), nil)

	var terr *TraversalError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, PhaseInit, terr.Phase)
	assert.ErrorIs(t, err, ErrNarratorUnavailable)
	assert.NotNil(t, records)
}

func TestTraverse_Cancelled(t *testing.T) {
	stub := &stubNarrator{endless: true}
	ctx, cancel := context.WithCancel(context.Background())

	records, err := NewTraverser(stubHandle(stub), nil).Traverse(ctx, testRoot(t), func(r model.AnnouncementRecord, count int) {
		if count == 3 {
			cancel()
		}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, records, 3)
	assert.Equal(t, 1, stub.stops)
}

func TestTraversalError_Message(t *testing.T) {
	err := &TraversalError{Phase: PhaseNext, Iteration: 4, Err: errors.New("x")}
	assert.Contains(t, err.Error(), "next")
	assert.Contains(t, err.Error(), "x")
}
