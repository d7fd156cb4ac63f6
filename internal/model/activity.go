package model

// 活动类型常量。
const (
	ActivityUpload    = "document.upload"
	ActivityDelete    = "document.delete"
	ActivityPublish   = "document.publish"
	ActivityUnpublish = "document.unpublish"
	ActivityReprocess = "document.reprocess"
	ActivityChat      = "chat.message"
)

// ActivityLog 对应于数据库中的 'activity_logs' 表，按组织记录关键操作。
type ActivityLog struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	OrgID  string `gorm:"type:varchar(64);index" json:"orgId"`
	UserID uint   `gorm:"not null" json:"userId"`
	Action string `gorm:"type:varchar(50);not null" json:"action"`
	// TargetID 是操作对象的标识（文档 ID、会话 ID 等）。
	TargetID  string    `gorm:"type:varchar(64)" json:"targetId"`
	Detail    string    `gorm:"type:text" json:"detail"`
	CreatedAt LocalTime `gorm:"autoCreateTime" json:"createdAt"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
