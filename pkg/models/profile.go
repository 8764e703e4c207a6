package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// UserProfile carries the DND window, caps, opt-outs, and engagement
// heatmap that the context enricher and arbiter read (spec.md §3).
type UserProfile struct {
	UserID              string `gorm:"size:64;primaryKey"`
	Timezone            string `gorm:"size:64;default:UTC"`
	DNDStartHour        int    `gorm:"default:22"`
	DNDEndHour          int    `gorm:"default:8"`
	ChannelPreferences  datatypes.JSONMap `gorm:"type:jsonb"`
	OptedOutTopics      datatypes.JSON    `gorm:"type:jsonb"`
	HourlyCapOverride   *int
	DailyCapOverride    *int
	Segment             string `gorm:"size:32;default:standard"`
	// EngagementHeatmap holds 24 floats, one per local hour, in [0,1].
	EngagementHeatmap datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt         time.Time      `gorm:"autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime"`
}

func (UserProfile) TableName() string { return "user_profiles" }

// DefaultHeatmap returns a flat, fully-engaged 24-hour heatmap — the
// teacher's fallback default for a profile that was just created.
func DefaultHeatmap() [24]float64 {
	var h [24]float64
	for i := range h {
		h[i] = 1.0
	}
	return h
}

// Heatmap decodes EngagementHeatmap, falling back to DefaultHeatmap when
// it is unset or malformed.
func (p *UserProfile) Heatmap() [24]float64 {
	var h [24]float64
	if len(p.EngagementHeatmap) == 0 {
		return DefaultHeatmap()
	}
	if err := json.Unmarshal(p.EngagementHeatmap, &h); err != nil {
		return DefaultHeatmap()
	}
	return h
}

// SetHeatmap re-encodes the 24-hour heatmap into EngagementHeatmap.
func (p *UserProfile) SetHeatmap(h [24]float64) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return err
	}
	p.EngagementHeatmap = datatypes.JSON(raw)
	return nil
}

// OptedOut reports whether eventType appears in OptedOutTopics.
func (p *UserProfile) OptedOut(eventType string) bool {
	if len(p.OptedOutTopics) == 0 {
		return false
	}
	var topics []string
	if err := json.Unmarshal(p.OptedOutTopics, &topics); err != nil {
		return false
	}
	for _, t := range topics {
		if t == eventType {
			return true
		}
	}
	return false
}

// OptOutTopics decodes OptedOutTopics into a plain string slice.
func (p *UserProfile) OptOutTopics() []string {
	if len(p.OptedOutTopics) == 0 {
		return nil
	}
	var topics []string
	_ = json.Unmarshal(p.OptedOutTopics, &topics)
	return topics
}

// AddOptOut idempotently adds topic to OptedOutTopics.
func (p *UserProfile) AddOptOut(topic string) error {
	topics := p.OptOutTopics()
	for _, t := range topics {
		if t == topic {
			return nil
		}
	}
	topics = append(topics, topic)
	raw, err := json.Marshal(topics)
	if err != nil {
		return err
	}
	p.OptedOutTopics = datatypes.JSON(raw)
	return nil
}

// RemoveOptOut idempotently removes topic from OptedOutTopics.
func (p *UserProfile) RemoveOptOut(topic string) error {
	topics := p.OptOutTopics()
	kept := topics[:0]
	for _, t := range topics {
		if t != topic {
			kept = append(kept, t)
		}
	}
	raw, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	p.OptedOutTopics = datatypes.JSON(raw)
	return nil
}
