package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-innovation-api/internal/dto"
)

func TestSubmissionEndpointsDriveTheIdeaWorkflow(t *testing.T) {
	a := setupApp(t)
	a.seedUser(t, 1, "employee")
	a.seedUser(t, 2, "manager")
	a.seedUser(t, 3, "employee")

	status, env := a.do(t, http.MethodPost, "/api/v1/submissions", 1, "employee", dto.SubmissionCreateRequest{
		Workflow: "idea",
		Title:    "Solar carports",
	})
	require.Equal(t, http.StatusCreated, status)
	var created dto.SubmissionResponse
	decodeData(t, env, &created)
	require.Equal(t, "draft", created.CurrentStage)
	base := fmt.Sprintf("/api/v1/submissions/%d", created.ID)

	status, env = a.do(t, http.MethodPost, base+"/transitions", 1, "employee", dto.TransitionRequest{TargetStage: "manager_review"})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Equal(t, "invalid_transition", env.Error)

	title := "Someone else's idea"
	status, _ = a.do(t, http.MethodPatch, base, 3, "employee", dto.SubmissionUpdateRequest{Title: &title})
	require.Equal(t, http.StatusForbidden, status)

	status, env = a.do(t, http.MethodPost, base+"/transitions", 1, "employee", dto.TransitionRequest{TargetStage: "submitted"})
	require.Equal(t, http.StatusOK, status)
	var submitted dto.SubmissionResponse
	decodeData(t, env, &submitted)
	require.NotNil(t, submitted.SubmittedAt)

	status, _ = a.do(t, http.MethodPost, base+"/transitions", 2, "manager", dto.TransitionRequest{TargetStage: "manager_review"})
	require.Equal(t, http.StatusOK, status)

	title = "Solar carports v2"
	status, env = a.do(t, http.MethodPatch, base, 1, "employee", dto.SubmissionUpdateRequest{Title: &title})
	require.Equal(t, http.StatusLocked, status)
	require.Equal(t, "locked", env.Error)

	status, _ = a.do(t, http.MethodPost, base+"/reviews", 1, "employee", dto.ReviewRequest{Decision: "approve"})
	require.Equal(t, http.StatusForbidden, status)

	score := 82.0
	status, env = a.do(t, http.MethodPost, base+"/reviews", 2, "manager", dto.ReviewRequest{Decision: "approve", Score: &score})
	require.Equal(t, http.StatusCreated, status)
	var result dto.ReviewResultResponse
	decodeData(t, env, &result)
	require.Equal(t, "manager_review", result.CurrentStage)
	require.Equal(t, 1, result.Stats.Approvals)
	require.Positive(t, result.PointsEarned)

	status, _ = a.do(t, http.MethodPost, base+"/reviews", 2, "manager", dto.ReviewRequest{Decision: "approve", Score: &score})
	require.Equal(t, http.StatusConflict, status)

	status, env = a.do(t, http.MethodGet, base+"/reviews/stats", 2, "manager", nil)
	require.Equal(t, http.StatusOK, status)
	var stats dto.ReviewStatsResponse
	decodeData(t, env, &stats)
	require.Equal(t, 1, stats.Total)
	require.Zero(t, stats.Pending)

	status, env = a.do(t, http.MethodGet, base+"/history", 1, "employee", nil)
	require.Equal(t, http.StatusOK, status)
	var history []dto.StageTransitionResponse
	decodeData(t, env, &history)
	require.Len(t, history, 2)
	require.Equal(t, "manager_review", history[1].ToStage)
}

func TestSubmissionEndpointsRejectBadRequests(t *testing.T) {
	a := setupApp(t)
	a.seedUser(t, 1, "employee")

	status, _ := a.do(t, http.MethodGet, "/api/v1/submissions/abc", 1, "employee", nil)
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = a.do(t, http.MethodGet, "/api/v1/submissions/999", 1, "employee", nil)
	require.Equal(t, http.StatusNotFound, status)

	status, _ = a.do(t, http.MethodPost, "/api/v1/submissions", 1, "employee", dto.SubmissionCreateRequest{Workflow: "hackathon", Title: "Nope"})
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = a.do(t, http.MethodGet, "/api/v1/submissions", 0, "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
}
