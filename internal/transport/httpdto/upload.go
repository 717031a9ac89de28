package httpdto

import "clipstream/internal/queue"

type SubmitUploadResponse struct {
	TaskID string `json:"task_id"`
}

type QueueStatusResponse struct {
	Counts map[queue.Status]int `json:"counts"`
	Tasks  []queue.Snapshot     `json:"tasks"`
}

type UploadEstimateResponse struct {
	EstimatedSeconds float64 `json:"estimated_seconds"`
	RecommendProceed bool    `json:"recommend_proceed"`
	WarningMessage   string  `json:"warning_message,omitempty"`
	DataUsageMB      float64 `json:"data_usage_mb"`
}
