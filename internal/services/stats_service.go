// internal/services/stats_service.go
package services

import (
	"log"
	"sync"
	"time"

	"github.com/novelcraft/novelcraft/internal/storage"
)

const (
	statsDir  = "stats"
	statsFile = "usage.json"
)

// UsageStats 生成用量统计
type UsageStats struct {
	TotalRequests  int            `json:"total_requests"`
	FailedRequests int            `json:"failed_requests"`
	TotalTokens    int            `json:"total_tokens"`
	TokensByModel  map[string]int `json:"tokens_by_model"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// StatsService 记录续写调用的用量统计
// 写入尽力而为：统计失败只记日志，绝不影响生成链路
type StatsService struct {
	Storage *storage.FileStorage

	mu    sync.Mutex
	stats UsageStats
}

// NewStatsService 创建统计服务并加载历史统计
func NewStatsService(fileStorage *storage.FileStorage) *StatsService {
	s := &StatsService{
		Storage: fileStorage,
		stats: UsageStats{
			TokensByModel: make(map[string]int),
		},
	}

	if fileStorage.FileExists(statsDir, statsFile) {
		var saved UsageStats
		if err := fileStorage.LoadJSON(statsDir, statsFile, &saved); err != nil {
			log.Printf("加载用量统计失败: %v", err)
		} else {
			if saved.TokensByModel == nil {
				saved.TokensByModel = make(map[string]int)
			}
			s.stats = saved
		}
	}

	return s
}

// RecordGeneration 记录一次生成请求
func (s *StatsService) RecordGeneration(model string, tokens int, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalRequests++
	if failed {
		s.stats.FailedRequests++
	}
	if tokens > 0 {
		s.stats.TotalTokens += tokens
		if model != "" {
			s.stats.TokensByModel[model] += tokens
		}
	}
	s.stats.UpdatedAt = time.Now()

	if err := s.Storage.SaveJSON(statsDir, statsFile, s.stats); err != nil {
		log.Printf("保存用量统计失败: %v", err)
	}
}

// GetStats 返回统计快照
func (s *StatsService) GetStats() UsageStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.stats
	snapshot.TokensByModel = make(map[string]int, len(s.stats.TokensByModel))
	for model, tokens := range s.stats.TokensByModel {
		snapshot.TokensByModel[model] = tokens
	}
	return snapshot
}
