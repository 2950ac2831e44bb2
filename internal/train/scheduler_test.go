package train

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/simplesurance/mergetrain/internal/codehost"
	"github.com/simplesurance/mergetrain/internal/goorderr"
	"github.com/simplesurance/mergetrain/internal/logfields"
	"github.com/simplesurance/mergetrain/internal/train/mocks"
)

func decisionIIDs(decisions []*Decision) []int {
	result := make([]int, 0, len(decisions))
	for _, d := range decisions {
		result = append(result, d.Candidate.IID())
	}

	return result
}

func TestPlanRebasesLowestIIDFirst(t *testing.T) {
	setupLogger(t)

	s := NewScheduler(nil, project)
	decisions := triageAll(&TriagePolicy{},
		newCandidate(9, NotRebased),
		newCandidate(3, NotRebased),
		newCandidate(5, NotRebased),
	)

	plan := s.Plan(decisions)
	assert.Equal(t, []int{3}, decisionIIDs(plan.Rebases))
	assert.Equal(t, []int{5, 9}, decisionIIDs(plan.DeferredRebases))
}

func TestPlanRebaseLimit(t *testing.T) {
	setupLogger(t)

	s := NewScheduler(nil, project)
	s.RebaseLimit = 2

	plan := s.Plan(triageAll(&TriagePolicy{},
		newCandidate(4, NotRebased),
		newCandidate(1, NotRebased),
		newCandidate(2, NotRebased),
	))
	assert.Equal(t, []int{1, 2}, decisionIIDs(plan.Rebases))
	assert.Equal(t, []int{4}, decisionIIDs(plan.DeferredRebases))
}

func TestPlanAllMergesAndReassigns(t *testing.T) {
	setupLogger(t)

	s := NewScheduler(nil, project)
	plan := s.Plan(triageAll(&TriagePolicy{},
		newCandidate(8, Rebased, codehost.PipelineStatusSuccess),
		conflicting(newCandidate(6, Rebased)),
		newCandidate(7, Rebased, codehost.PipelineStatusSuccess),
		conflicting(newCandidate(1, NotRebased)),
		newCandidate(2, Rebased, codehost.PipelineStatusRunning),
	))

	assert.Equal(t, []int{1, 6}, decisionIIDs(plan.Reassigns))
	assert.Equal(t, []int{7, 8}, decisionIIDs(plan.Merges))
	assert.Empty(t, plan.Rebases)
	assert.Empty(t, plan.DeferredRebases)
}

func TestPlanCancelsInFlightPipelinesOfNotRebased(t *testing.T) {
	setupLogger(t)

	s := NewScheduler(nil, project)
	c3 := newCandidate(3, NotRebased, codehost.PipelineStatusRunning, codehost.PipelineStatusFailed)
	c9 := newCandidate(9, NotRebased, codehost.PipelineStatusPending)
	c10 := newCandidate(10, Rebased, codehost.PipelineStatusRunning)

	plan := s.Plan(triageAll(&TriagePolicy{}, c9, c3, c10))

	require.Len(t, plan.Cancellations, 2)
	assert.Equal(t, c3.Pipelines[0], plan.Cancellations[0].Pipeline)
	assert.Equal(t, c9.Pipelines[0], plan.Cancellations[1].Pipeline)
}

func TestPlanWithoutCancelStalePipelines(t *testing.T) {
	setupLogger(t)

	s := NewScheduler(nil, project)
	s.CancelStalePipelines = false

	plan := s.Plan(triageAll(&TriagePolicy{}, newCandidate(3, NotRebased, codehost.PipelineStatusRunning)))
	assert.Empty(t, plan.Cancellations)
	assert.Len(t, plan.Rebases, 1)
}

func TestPlanEmpty(t *testing.T) {
	setupLogger(t)

	s := NewScheduler(nil, project)
	plan := s.Plan(triageAll(&TriagePolicy{}, newCandidate(2, Rebased, codehost.PipelineStatusRunning)))
	assert.True(t, plan.Empty())
}

func TestDispatchOrder(t *testing.T) {
	setupLogger(t)

	mockctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(mockctrl)
	s := NewScheduler(gw, project)

	merge := newCandidate(7, Rebased, codehost.PipelineStatusSuccess)
	conflict := conflicting(newCandidate(5, Rebased))
	rebase := newCandidate(3, NotRebased)
	deferred := newCandidate(9, NotRebased, codehost.PipelineStatusRunning)

	gomock.InOrder(
		gw.EXPECT().SetAssignee(gomock.Any(), project, 5, &conflict.MergeRequest.Author).Return(nil),
		gw.EXPECT().CreateComment(gomock.Any(), project, 5, NotificationText(&conflict.MergeRequest.Author, ReasonMergeConflict)).Return(nil),
		gw.EXPECT().CancelPipeline(gomock.Any(), project, deferred.Pipelines[0].ID).Return(nil),
		gw.EXPECT().Rebase(gomock.Any(), project, 3).Return(nil),
		gw.EXPECT().Merge(gomock.Any(), project, 7, merge.MergeRequest.HeadSHA).Return(nil),
	)

	plan := s.Plan(triageAll(&TriagePolicy{}, merge, conflict, rebase, deferred))
	results := s.Dispatch(context.Background(), plan)

	require.Len(t, results, 5)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
	assert.Equal(t, OpSetAssignee, results[0].Op)
	assert.Equal(t, OpComment, results[1].Op)
	assert.Equal(t, OpCancelPipeline, results[2].Op)
	assert.Equal(t, OpRebase, results[3].Op)
	assert.Equal(t, OpMerge, results[4].Op)
}

func TestDispatchContinuesAfterFailures(t *testing.T) {
	setupLogger(t)

	mockctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(mockctrl)
	s := NewScheduler(gw, project)
	s.RebaseLimit = 2

	gw.EXPECT().Rebase(gomock.Any(), project, 1).Return(errors.New("error mocked by rebase"))
	gw.EXPECT().Rebase(gomock.Any(), project, 2).Return(nil)
	gw.EXPECT().Merge(gomock.Any(), project, 3, gomock.Any()).Return(errors.New("error mocked by merge"))
	gw.EXPECT().Merge(gomock.Any(), project, 4, gomock.Any()).Return(nil)

	plan := s.Plan(triageAll(&TriagePolicy{},
		newCandidate(1, NotRebased),
		newCandidate(2, NotRebased),
		newCandidate(3, Rebased, codehost.PipelineStatusSuccess),
		newCandidate(4, Rebased, codehost.PipelineStatusSuccess),
	))

	results := s.Dispatch(context.Background(), plan)
	require.Len(t, results, 4)

	report := PassReport{Plan: plan, Results: results}
	assert.EqualValues(t, 2, report.Failures())
}

func TestDispatchNoCommentWhenAssignFails(t *testing.T) {
	setupLogger(t)

	mockctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(mockctrl)
	s := NewScheduler(gw, project)

	gw.EXPECT().SetAssignee(gomock.Any(), project, 5, gomock.Any()).Return(errors.New("error mocked by set assignee"))
	gw.EXPECT().SetAssignee(gomock.Any(), project, 6, gomock.Any()).Return(nil)
	gw.EXPECT().CreateComment(gomock.Any(), project, 6, gomock.Any()).Return(nil)

	plan := s.Plan(triageAll(&TriagePolicy{},
		conflicting(newCandidate(5, Rebased)),
		conflicting(newCandidate(6, Rebased)),
	))

	results := s.Dispatch(context.Background(), plan)
	require.Len(t, results, 3)
	assert.Error(t, results[0].Err)
}

func TestDispatchLogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))

	mockctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(mockctrl)
	s := NewScheduler(gw, project)

	gw.EXPECT().CancelPipeline(gomock.Any(), project, int64(1000)).Return(nil)
	gw.EXPECT().Rebase(gomock.Any(), project, 1).
		Return(goorderr.NewRetryableAnytimeError(errors.New("error mocked by rebase")))
	gw.EXPECT().Merge(gomock.Any(), project, 2, gomock.Any()).Return(errors.New("error mocked by merge"))

	plan := s.Plan(triageAll(&TriagePolicy{},
		newCandidate(1, NotRebased, codehost.PipelineStatusRunning),
		newCandidate(2, Rebased, codehost.PipelineStatusSuccess),
	))
	s.Dispatch(context.Background(), plan)

	cancelled := logs.FilterField(logfields.Action(OpCancelPipeline)).All()
	require.Len(t, cancelled, 1)
	assert.Equal(t, string(codehost.PipelineStatusRunning), cancelled[0].ContextMap()["pipeline_status"])

	failed := logs.FilterField(logEventActionFailed).All()
	require.Len(t, failed, 2)
	assert.Equal(t, true, failed[0].ContextMap()["retryable"])
	assert.Equal(t, false, failed[1].ContextMap()["retryable"])
}

func TestNotificationTextMentionsAuthor(t *testing.T) {
	author := codehost.User{Name: "Jane Doe", Username: "jdoe"}

	txt := NotificationText(&author, ReasonPipelineFailed)
	assert.Contains(t, txt, "@jdoe")
	assert.Contains(t, txt, ReasonPipelineFailed)
}

func TestScenarios(t *testing.T) {
	t.Run("A conflict is reassigned", func(t *testing.T) {
		setupLogger(t)

		mockctrl := gomock.NewController(t)
		gw := mocks.NewMockGateway(mockctrl)
		s := NewScheduler(gw, project)
		c := conflicting(newCandidate(5, NotRebased))

		gomock.InOrder(
			gw.EXPECT().SetAssignee(gomock.Any(), project, 5, &c.MergeRequest.Author).Return(nil),
			gw.EXPECT().CreateComment(gomock.Any(), project, 5, gomock.Any()).
				DoAndReturn(func(_ context.Context, _ string, _ int, txt string) error {
					assert.Contains(t, txt, "@"+c.MergeRequest.Author.Username)
					assert.Contains(t, txt, ReasonMergeConflict)
					return nil
				}),
		)

		s.Dispatch(context.Background(), s.Plan(triageAll(&TriagePolicy{}, c)))
	})

	t.Run("B successful rebased is merged", func(t *testing.T) {
		setupLogger(t)

		mockctrl := gomock.NewController(t)
		gw := mocks.NewMockGateway(mockctrl)
		s := NewScheduler(gw, project)
		c := newCandidate(7, Rebased, codehost.PipelineStatusSuccess)

		gw.EXPECT().Merge(gomock.Any(), project, 7, c.MergeRequest.HeadSHA).Return(nil)

		s.Dispatch(context.Background(), s.Plan(triageAll(&TriagePolicy{}, c)))
	})

	t.Run("C lowest iid is rebased", func(t *testing.T) {
		setupLogger(t)

		mockctrl := gomock.NewController(t)
		gw := mocks.NewMockGateway(mockctrl)
		s := NewScheduler(gw, project)
		c3 := newCandidate(3, NotRebased)
		c9 := newCandidate(9, NotRebased, codehost.PipelineStatusRunning)

		gomock.InOrder(
			gw.EXPECT().CancelPipeline(gomock.Any(), project, c9.Pipelines[0].ID).Return(nil),
			gw.EXPECT().Rebase(gomock.Any(), project, 3).Return(nil),
		)

		plan := s.Plan(triageAll(&TriagePolicy{}, c9, c3))
		s.Dispatch(context.Background(), plan)

		assert.Equal(t, []int{9}, decisionIIDs(plan.DeferredRebases))
	})

	t.Run("D running pipeline does nothing", func(t *testing.T) {
		setupLogger(t)

		mockctrl := gomock.NewController(t)
		gw := mocks.NewMockGateway(mockctrl)
		s := NewScheduler(gw, project)

		results := s.Dispatch(
			context.Background(),
			s.Plan(triageAll(&TriagePolicy{}, newCandidate(2, Rebased, codehost.PipelineStatusRunning))),
		)
		assert.Empty(t, results)
	})
}
