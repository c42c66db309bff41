package types

import "time"

// SnapshotLimit is one post type of a plan, copied together with its
// display metadata at acquisition time.
type SnapshotLimit struct {
	PostTypeID  string `json:"post_type_id"`
	DisplayName string `json:"display_name"`
	Priority    int    `json:"priority"`
	Color       string `json:"color"`
	StarRating  int    `json:"star_rating"`
	Limit       int    `json:"limit"`
}

// PlanSnapshot is a value copy of a PackagePlan owned by one subscription.
// It never aliases catalog memory.
type PlanSnapshot struct {
	PlanID        string          `json:"plan_id"`
	Name          string          `json:"name"`
	DisplayName   string          `json:"display_name"`
	Price         int64           `json:"price"`
	Currency      string          `json:"currency"`
	Duration      Duration        `json:"duration"`
	Limits        []SnapshotLimit `json:"limits"`
	FreePushCount int             `json:"free_push_count"`
}

func (s *PlanSnapshot) Clone() *PlanSnapshot {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Limits = append([]SnapshotLimit(nil), s.Limits...)
	return &cp
}

func (s *PlanSnapshot) Find(postTypeID string) (SnapshotLimit, bool) {
	if s == nil {
		return SnapshotLimit{}, false
	}
	for _, l := range s.Limits {
		if l.PostTypeID == postTypeID {
			return l, true
		}
	}
	return SnapshotLimit{}, false
}

func (s *PlanSnapshot) PostTypeIDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.Limits))
	for _, l := range s.Limits {
		ids = append(ids, l.PostTypeID)
	}
	return ids
}

// LowestPriority returns the entry with the highest priority number,
// ties broken by the greatest id so the choice is deterministic.
func (s *PlanSnapshot) LowestPriority() (SnapshotLimit, bool) {
	if s == nil || len(s.Limits) == 0 {
		return SnapshotLimit{}, false
	}
	best := s.Limits[0]
	for _, l := range s.Limits[1:] {
		if l.Priority > best.Priority || (l.Priority == best.Priority && l.PostTypeID > best.PostTypeID) {
			best = l
		}
	}
	return best, true
}

type Counter struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

func (c Counter) Remaining() int {
	if c.Used >= c.Limit {
		return 0
	}
	return c.Limit - c.Used
}

// UsageMap maps post type id to its counter.
type UsageMap map[string]Counter

func (m UsageMap) Clone() UsageMap {
	if m == nil {
		return nil
	}
	cp := make(UsageMap, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

type PushUsage struct {
	Used  int `json:"used"`
	Total int `json:"total"`
}

func (p PushUsage) Remaining() int {
	if p.Used >= p.Total {
		return 0
	}
	return p.Total - p.Used
}

// TransferRecord describes one listing moved to another post type when the
// plan it was published under was replaced.
type TransferRecord struct {
	PropertyID             string    `json:"property_id"`
	PropertyTitle          string    `json:"property_title"`
	FromPostType           string    `json:"from_post_type"`
	ToPostType             string    `json:"to_post_type"`
	TransferredFromPackage string    `json:"transferred_from_package"`
	TransferredToPackage   string    `json:"transferred_to_package"`
	TransferDate           time.Time `json:"transfer_date"`
}
