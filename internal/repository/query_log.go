package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/aeonisk/arbiter/internal/domain"
)

// QueryLogRepository records each retrieval for tuning the search pipeline.
type QueryLogRepository struct {
	pool *pgxpool.Pool
}

func NewQueryLogRepository(pool *pgxpool.Pool) *QueryLogRepository {
	return &QueryLogRepository{pool: pool}
}

// LogQuery satisfies rag.QueryLogger. Logging must never fail a retrieval,
// so errors are logged and dropped.
func (r *QueryLogRepository) LogQuery(ctx context.Context, query string, analysis domain.QueryAnalysis, chunkIDs []string, reranked bool, took time.Duration) {
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		log.Warn().Err(err).Msg("encoding query analysis for log")
		return
	}
	chunksJSON, err := json.Marshal(chunkIDs)
	if err != nil {
		log.Warn().Err(err).Msg("encoding chunk ids for log")
		return
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO query_logs (query, intent_type, analysis, chunk_ids, result_count, reranked, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		query,
		string(analysis.IntentType),
		analysisJSON,
		chunksJSON,
		len(chunkIDs),
		reranked,
		took.Milliseconds(),
	)
	if err != nil {
		log.Warn().Err(err).Msg("writing query log")
	}
}
