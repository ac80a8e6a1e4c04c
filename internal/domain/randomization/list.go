package randomization

import "time"

// ListEntry is one sealed slot. Only the used* fields ever change, once.
type ListEntry struct {
	ID                  uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ConfigID            uint       `gorm:"column:config_id;not null;uniqueIndex:idx_rle_config_stratum_seq,priority:1" json:"configId"`
	StratumKey          string     `gorm:"column:stratum_key;not null;uniqueIndex:idx_rle_config_stratum_seq,priority:2" json:"stratumKey"`
	SequenceNumber      int        `gorm:"column:sequence_number;not null;uniqueIndex:idx_rle_config_stratum_seq,priority:3" json:"sequenceNumber"`
	BlockNumber         int        `gorm:"column:block_number;not null" json:"blockNumber"`
	ArmID               string     `gorm:"column:arm_id;not null" json:"armId"`
	RandomizationNumber string     `gorm:"column:randomization_number;not null;uniqueIndex" json:"randomizationNumber"`
	Used                bool       `gorm:"column:used;not null" json:"used"`
	UsedBySubjectID     *int       `gorm:"column:used_by_subject_id" json:"usedBySubjectId,omitempty"`
	UsedAt              *time.Time `gorm:"column:used_at" json:"usedAt,omitempty"`
	CreatedAt           time.Time  `gorm:"column:created_at;not null" json:"createdAt"`
}

func (ListEntry) TableName() string { return "randomization_list_entry" }

// Stratum is the per-(config, stratum) row locked by claims to serialize
// consumption within one sub-list.
type Stratum struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ConfigID     uint      `gorm:"column:config_id;not null;uniqueIndex:idx_rs_config_key,priority:1" json:"configId"`
	StratumKey   string    `gorm:"column:stratum_key;not null;uniqueIndex:idx_rs_config_key,priority:2" json:"stratumKey"`
	StratumIndex int       `gorm:"column:stratum_index;not null" json:"stratumIndex"`
	TotalEntries int       `gorm:"column:total_entries;not null" json:"totalEntries"`
	CreatedAt    time.Time `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (Stratum) TableName() string { return "randomization_stratum" }

// Assignment records that a subject has been randomized. Never updated.
type Assignment struct {
	ID                  uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	StudySubjectID      int       `gorm:"column:study_subject_id;not null;uniqueIndex" json:"studySubjectId"`
	StudyID             int       `gorm:"column:study_id;not null;index" json:"studyId"`
	ConfigID            uint      `gorm:"column:config_id;not null;index" json:"configId"`
	ListEntryID         uint      `gorm:"column:list_entry_id;not null;uniqueIndex" json:"listEntryId"`
	ArmID               string    `gorm:"column:arm_id;not null" json:"armId"`
	StratumKey          string    `gorm:"column:stratum_key;not null" json:"stratumKey"`
	SequenceNumber      int       `gorm:"column:sequence_number;not null" json:"sequenceNumber"`
	RandomizationNumber string    `gorm:"column:randomization_number;not null" json:"randomizationNumber"`
	AssignedBy          int       `gorm:"column:assigned_by;not null" json:"assignedBy"`
	AssignedAt          time.Time `gorm:"column:assigned_at;not null" json:"assignedAt"`
}

func (Assignment) TableName() string { return "subject_randomization" }

// StudyGroup is a row of the external arm taxonomy. Read only.
type StudyGroup struct {
	StudyGroupID      int    `gorm:"column:study_group_id;primaryKey" json:"studyGroupId"`
	Name              string `gorm:"column:name" json:"name"`
	Description       string `gorm:"column:description" json:"description,omitempty"`
	StudyGroupClassID int    `gorm:"column:study_group_class_id;index" json:"studyGroupClassId"`
}

func (StudyGroup) TableName() string { return "study_group" }
