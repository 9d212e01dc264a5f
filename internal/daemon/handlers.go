package daemon

import (
	"encoding/json"
	"time"

	"github.com/lngonzalezg/yerba/internal/manager"
	"github.com/lngonzalezg/yerba/internal/router"
	"github.com/lngonzalezg/yerba/internal/status"
	"github.com/lngonzalezg/yerba/internal/workflow"
)

type healthResponse struct {
	Status string `json:"status"`
}

type scheduleResponse struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
	Errors any    `json:"errors"`
}

type cancelResponse struct {
	Status string `json:"status"`
}

type getStatusResponse struct {
	Status string              `json:"status"`
	Jobs   []workflow.JobState `json:"jobs"`
}

type workflowsResponse struct {
	Workflows [][4]any `json:"workflows"`
}

type cancelRequest struct {
	ID int64 `json:"id"`
}

type workflowsRequest struct {
	IDs []int64 `json:"ids,omitempty"`
}

func registerRoutes(r *router.Router, eng *manager.Engine, requestShutdown func()) {
	r.Register("health", func(json.RawMessage) (any, error) {
		return healthResponse{Status: "OK"}, nil
	})

	r.Register("schedule", func(data json.RawMessage) (any, error) {
		var spec workflow.Spec
		if len(data) > 0 {
			if err := json.Unmarshal(data, &spec); err != nil {
				return scheduleResponse{Status: string(status.Error), Errors: err.Error()}, nil
			}
		}
		result, err := eng.Submit(spec)
		if err != nil {
			return nil, err
		}
		var errs any
		if len(result.Errors) > 0 {
			errs = result.Errors
		}
		return scheduleResponse{Status: string(result.Status), ID: result.ID, Errors: errs}, nil
	})

	r.Register("cancel", func(data json.RawMessage) (any, error) {
		var req cancelRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return cancelResponse{Status: string(status.Error)}, nil
		}
		st := eng.Cancel(req.ID)
		return cancelResponse{Status: string(st)}, nil
	})

	r.Register("get_status", func(data json.RawMessage) (any, error) {
		var req cancelRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return getStatusResponse{Status: string(status.Error)}, nil
		}
		result, err := eng.Status(req.ID)
		if err != nil {
			return nil, err
		}
		return getStatusResponse{Status: string(result.Status), Jobs: result.Jobs}, nil
	})

	r.Register("workflows", func(data json.RawMessage) (any, error) {
		var req workflowsRequest
		if len(data) > 0 {
			_ = json.Unmarshal(data, &req)
		}
		rows, err := eng.Workflows(req.IDs)
		if err != nil {
			return nil, err
		}
		out := make([][4]any, len(rows))
		for i, row := range rows {
			var completed any
			if row.Completed != nil {
				completed = row.Completed.Format(time.RFC3339)
			}
			out[i] = [4]any{row.ID, row.Submitted.Format(time.RFC3339), completed, row.Status}
		}
		return workflowsResponse{Workflows: out}, nil
	})

	r.Register("shutdown", func(json.RawMessage) (any, error) {
		requestShutdown()
		return nil, nil
	})
}
