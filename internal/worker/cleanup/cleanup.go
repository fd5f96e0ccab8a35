// Package cleanup は期限切れセッションの定期削除ジョブを提供する。
// 期限切れセッションは参照時にも無効として扱われるが、
// テーブルに残り続けないようワーカーが定期的に削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Recorder は削除件数の記録先。*metrics.Collector が満たす。
type Recorder interface {
	RecordSessionsCleaned(count int64)
}

type nopRecorder struct{}

func (nopRecorder) RecordSessionsCleaned(int64) {}

// CleanupJob は期限切れセッションの削除ジョブ。
// 冪等であり、削除対象がなくてもエラーにならない。
type CleanupJob struct {
	db       Executor
	logger   *slog.Logger
	recorder Recorder

	// GracePeriod は期限切れから削除までの猶予（デフォルト: 0）。
	GracePeriod time.Duration
}

// NewCleanupJob は新しいCleanupJobを生成する。
// recorderがnilの場合は件数を記録しない。
func NewCleanupJob(db Executor, logger *slog.Logger, recorder Recorder) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &CleanupJob{
		db:       db,
		logger:   logger,
		recorder: recorder,
	}
}

// Run はexpires_atが猶予期間より前のセッションを削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	grace := fmt.Sprintf("%d seconds", int64(j.GracePeriod/time.Second))

	query := `DELETE FROM sessions WHERE expires_at < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, grace)
	if err != nil {
		j.logger.Error("セッションクリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	j.recorder.RecordSessionsCleaned(deletedCount)

	j.logger.Info("セッションクリーンアップが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Duration("grace_period", j.GracePeriod),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start はinterval間隔でRunを繰り返す。起動直後に1回実行する。
// コンテキストがキャンセルされるまでブロックする。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("セッションクリーンアップを開始しました",
		slog.Duration("interval", interval),
	)

	// Runのエラーはログ済みなので次回に持ち越す
	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("セッションクリーンアップを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
