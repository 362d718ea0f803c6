package store

import "time"

const (
	keyAlwaysShowNotification = "always_show_notification"
	keyOrganizationID         = "organization_id"
	keyMemberID               = "member_id"
	keyPollInterval           = "poll_interval_seconds"
)

const defaultPollInterval = 30 * time.Second

// SettingsStore holds user preferences in the settings partition.
type SettingsStore struct {
	kv KV
}

func NewSettingsStore(kv KV) *SettingsStore {
	return &SettingsStore{kv: kv}
}

// AlwaysShowNotification controls whether the idle notification stays
// visible when nothing is tracked. Defaults to false (hidden when idle).
func (s *SettingsStore) AlwaysShowNotification() bool {
	v, ok, err := s.kv.GetBool(PartitionSettings, keyAlwaysShowNotification)
	if err != nil || !ok {
		return false
	}
	return v
}

func (s *SettingsStore) SetAlwaysShowNotification(v bool) error {
	return s.kv.SetBool(PartitionSettings, keyAlwaysShowNotification, v)
}

// OrganizationID is the organization selected for new entries.
func (s *SettingsStore) OrganizationID() string {
	v, _, _ := s.kv.GetString(PartitionSettings, keyOrganizationID)
	return v
}

func (s *SettingsStore) SetOrganizationID(id string) error {
	return s.kv.SetString(PartitionSettings, keyOrganizationID, id)
}

func (s *SettingsStore) MemberID() string {
	v, _, _ := s.kv.GetString(PartitionSettings, keyMemberID)
	return v
}

func (s *SettingsStore) SetMemberID(id string) error {
	return s.kv.SetString(PartitionSettings, keyMemberID, id)
}

func (s *SettingsStore) PollInterval() time.Duration {
	v, ok, err := s.kv.GetInt64(PartitionSettings, keyPollInterval)
	if err != nil || !ok || v <= 0 {
		return defaultPollInterval
	}
	return time.Duration(v) * time.Second
}

func (s *SettingsStore) SetPollInterval(d time.Duration) error {
	return s.kv.SetInt64(PartitionSettings, keyPollInterval, int64(d/time.Second))
}
