package postgres

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

func applySessionFilters(query *gorm.DB, filters repositories.SessionFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.ExamID != nil {
		query = query.Where("exam_id = ?", *filters.ExamID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

func applySessionPaginationAndSort(query *gorm.DB, filters repositories.SessionFilters) *gorm.DB {
	sortBy := filters.SortBy
	switch sortBy {
	case "created_at", "start_time", "end_time", "total_score":
	default:
		sortBy = "created_at"
	}
	sortOrder := filters.SortOrder
	if sortOrder != "asc" {
		sortOrder = "desc"
	}
	query = query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder))

	limit := filters.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return query.Limit(limit).Offset(filters.Offset)
}
