package db

// JournalEntry is one recorded frame, progress outcome or session event.
type JournalEntry struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Direction string `gorm:"column:direction;not null;default:''"`
	MsgType   string `gorm:"column:msg_type;not null;default:''"`
	ActionID  string `gorm:"column:action_id;not null;default:''"`
	Status    string `gorm:"column:status;not null;default:''"`
	Detail    string `gorm:"column:detail;not null;default:''"`
	CreatedAt int64  `gorm:"column:created_at;not null;default:0"`
}

func (JournalEntry) TableName() string { return "journal" }

// BackendHistory tracks every backend address a session reached.
type BackendHistory struct {
	Address          string `gorm:"column:address;primaryKey"`
	FirstConnectedAt int64  `gorm:"column:first_connected_at;not null;default:0"`
	LastConnectedAt  int64  `gorm:"column:last_connected_at;not null;default:0"`
	ConnectCount     int    `gorm:"column:connect_count;not null;default:0"`
}

func (BackendHistory) TableName() string { return "backend_history" }
