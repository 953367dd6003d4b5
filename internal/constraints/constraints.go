// Package constraints applies vendor policy filtering on top of a ranked
// candidate list and keeps an auditable log of every application.
package constraints

import (
	"sync"

	"quartermaster/pkg/types"
)

// Policy narrows a candidate list by vendor rules. It reuses the wire shape
// of types.VendorConstraints.
type Policy = types.VendorConstraints

// Apply filters candidates by policy: excluded vendors, minimum reliability,
// and maximum lead time are hard drops; preferred vendors are then moved to
// the front with relative order preserved inside both groups. An empty
// policy returns the input unchanged.
func Apply(candidates []types.Candidate, policy *Policy) []types.Candidate {
	if policy.Empty() {
		return candidates
	}

	excluded := make(map[string]bool, len(policy.ExcludedVendors))
	for _, vendor := range policy.ExcludedVendors {
		excluded[vendor] = true
	}
	preferred := make(map[string]bool, len(policy.PreferredVendors))
	for _, vendor := range policy.PreferredVendors {
		preferred[vendor] = true
	}

	var front, back []types.Candidate
	for _, candidate := range candidates {
		if excluded[candidate.Vendor] {
			continue
		}
		if policy.MinReliability != nil && candidate.Reliability < *policy.MinReliability {
			continue
		}
		if policy.MaxLeadTime != nil && candidate.LeadTimeDays > *policy.MaxLeadTime {
			continue
		}
		if preferred[candidate.Vendor] {
			front = append(front, candidate)
		} else {
			back = append(back, candidate)
		}
	}
	return append(front, back...)
}

// Application is the audit record for one policy application.
type Application struct {
	Status             string            `json:"status"`
	RequestID          string            `json:"request_id"`
	CandidatesBefore   int               `json:"candidates_before"`
	CandidatesAfter    int               `json:"candidates_after"`
	Candidates         []types.Candidate `json:"candidates"`
	ConstraintsApplied *Policy           `json:"constraints_applied"`
	Sequence           int64             `json:"sequence"`
}

// Service keeps per-request policies and an application log. Timestamps are
// logical sequence numbers so replays compare equal.
type Service struct {
	mu       sync.Mutex
	policies map[string]*Policy
	log      []Application
	sequence int64
}

// NewService creates an empty constraints service.
func NewService() *Service {
	return &Service{policies: make(map[string]*Policy)}
}

// Apply filters candidates for a request, caches the policy under the
// request ID, and records the application.
func (s *Service) Apply(requestID string, candidates []types.Candidate, policy *Policy) Application {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := Apply(candidates, policy)
	s.sequence++
	application := Application{
		Status:             "applied",
		RequestID:          requestID,
		CandidatesBefore:   len(candidates),
		CandidatesAfter:    len(filtered),
		Candidates:         filtered,
		ConstraintsApplied: policy,
		Sequence:           s.sequence,
	}

	if requestID != "" {
		s.policies[requestID] = policy
	}
	s.log = append(s.log, application)
	return application
}

// History returns the cached policy for a request ID, if any.
func (s *Service) History(requestID string) (*Policy, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	policy, ok := s.policies[requestID]
	return policy, ok
}

// Log returns a copy of the application log, oldest first.
func (s *Service) Log() []Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Application, len(s.log))
	copy(out, s.log)
	return out
}

// BulkRequest is one entry in a BulkApply batch.
type BulkRequest struct {
	RequestID  string            `json:"request_id"`
	Candidates []types.Candidate `json:"candidates"`
	Policy     *Policy           `json:"constraints"`
}

// BulkApply applies each batch entry in order and returns the applications.
func (s *Service) BulkApply(batch []BulkRequest) []Application {
	applications := make([]Application, 0, len(batch))
	for _, req := range batch {
		applications = append(applications, s.Apply(req.RequestID, req.Candidates, req.Policy))
	}
	return applications
}
