package model

import "time"

// Violation は生徒の違反記録（ポイント制）を表す。
// Pointsの重み付けやカテゴリの妥当性は学校側の運用設定であり、
// アプリケーションは記録と集計のみを行う。
type Violation struct {
	ID         string
	StudentID  string
	ReporterID string
	Category   string
	Points     int
	Note       string
	CreatedAt  time.Time
}

// ConsultationStatus は相談の進行状態を表す。
type ConsultationStatus string

const (
	// ConsultationRequested は生徒が相談を申請した状態。
	ConsultationRequested ConsultationStatus = "requested"
	// ConsultationScheduled はBK教員が日時を確定した状態。
	ConsultationScheduled ConsultationStatus = "scheduled"
	// ConsultationCompleted は相談が実施済みの状態。
	ConsultationCompleted ConsultationStatus = "completed"
	// ConsultationCancelled は相談が取り消された状態。
	ConsultationCancelled ConsultationStatus = "cancelled"
)

// Consultation は生徒とBK教員の相談を表す。
// 状態遷移: requested → scheduled → completed または cancelled。
type Consultation struct {
	ID          string
	StudentID   string
	CounselorID *string
	Topic       string
	Status      ConsultationStatus
	ScheduledAt *time.Time
	Note        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
