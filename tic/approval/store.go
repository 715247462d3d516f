package approval

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/tichealth/tic-app/tic/claims"
	"github.com/tichealth/tic-app/tic/constants"
	"github.com/tichealth/tic-app/tic/grouping"
	"github.com/tichealth/tic-app/tic/models"
)

// Store owns one session's claim working set, active grouping method, and
// approval ledger. The claim-level approval map is the durable source of
// truth; everything group-level is derived by recomputation. Derived state is
// memoized on a version counter that every mutation bumps, so a read never
// observes stale group approvals.
type Store struct {
	mu sync.Mutex

	claimSet []models.Claim
	method   grouping.Method

	// Claim row id -> approved. Only set through group-scoped operations or
	// cleared by eligibility-breaking edits.
	approvals map[string]bool

	version uint64

	grouped        *grouping.Grouped
	groupedVersion uint64
	groupedMethod  grouping.Method
}

func NewStore() *Store {
	return &Store{
		method:    grouping.DefaultMethod,
		approvals: make(map[string]bool),
	}
}

// SetClaims replaces the working set with a fresh upload. All prior
// approvals belong to rows that no longer exist, so the ledger resets.
func (s *Store) SetClaims(claimSet []models.Claim) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.claimSet = append([]models.Claim(nil), claimSet...)
	s.approvals = make(map[string]bool)
	s.version++
}

// Claims returns a copy of the working set in source-row order.
func (s *Store) Claims() []models.Claim {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.Claim(nil), s.claimSet...)
}

func (s *Store) Method() grouping.Method {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.method
}

// SetMethod switches the active grouping methodology. Claims and the
// claim-level ledger are untouched; groups and derived group approvals are
// recomputed from scratch on the next read, never carried over from the
// previous partition.
func (s *Store) SetMethod(m grouping.Method) error {
	if _, err := grouping.ParseMethod(string(m)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.method != m {
		s.method = m
		s.version++
	}
	return nil
}

// groups returns the memoized partition for the current claim set, method,
// and ledger, recomputing when any of them changed. Callers must hold mu.
func (s *Store) groups() (*grouping.Grouped, error) {
	if s.grouped != nil && s.groupedVersion == s.version && s.groupedMethod == s.method {
		return s.grouped, nil
	}

	grouped, err := grouping.Aggregate(s.claimSet, s.method, s.approvals)
	if err != nil {
		return nil, err
	}

	s.grouped = grouped
	s.groupedVersion = s.version
	s.groupedMethod = s.method
	return grouped, nil
}

// Groups recomputes and returns the pricing groups for the active method.
func (s *Store) Groups() ([]*models.GroupSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grouped, err := s.groups()
	if err != nil {
		return nil, err
	}
	return grouped.Summaries, nil
}

func (s *Store) findClaim(rowID string) int {
	for i := range s.claimSet {
		if s.claimSet[i].RowID == rowID {
			return i
		}
	}
	return -1
}

// EditClaim applies raw field edits to one claim and revalidates it. An edit
// that leaves the claim ineligible clears any individual approval it held;
// approval cannot persist across an eligibility-breaking edit.
func (s *Store) EditClaim(rowID string, fields map[string]string) (*models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findClaim(rowID)
	if idx < 0 {
		return nil, errors.New(constants.ErrClaimNotFound)
	}

	c := &s.claimSet[idx]
	for field, value := range fields {
		if err := claims.SetField(c, field, value); err != nil {
			return nil, err
		}
	}
	claims.Validate(c)

	if !grouping.IsEligible(c) {
		delete(s.approvals, c.RowID)
	}

	s.version++

	edited := *c
	return &edited, nil
}

// RemoveClaim deletes one claim from the working set along with its ledger
// entry.
func (s *Store) RemoveClaim(rowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findClaim(rowID)
	if idx < 0 {
		return errors.New(constants.ErrClaimNotFound)
	}

	delete(s.approvals, rowID)
	s.claimSet = append(s.claimSet[:idx], s.claimSet[idx+1:]...)
	s.version++
	return nil
}

// ApproveAllEligibleGroups marks every eligible claim in every eligible group
// approved. The resulting map replaces the ledger wholesale rather than
// adding to it, so a second call is a no-op and approvals never accumulate
// across incompatible groupings.
func (s *Store) ApproveAllEligibleGroups() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	grouped, err := s.groups()
	if err != nil {
		return err
	}

	next := make(map[string]bool)
	for _, g := range grouped.Summaries {
		if !g.Eligible {
			continue
		}
		for _, idx := range grouped.EligibleMembers[g.Key] {
			next[s.claimSet[idx].RowID] = true
		}
	}

	s.approvals = next
	s.version++
	return nil
}

// ClearApprovals empties the claim-level ledger; the derived group map goes
// all-false on the next read.
func (s *Store) ClearApprovals() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.approvals = make(map[string]bool)
	s.version++
}

// SetGroupApproval sets or clears approval for every eligible claim in one
// group. Unknown or ineligible groups are a no-op; ineligible claims inside
// an eligible group cannot be approved by definition and are untouched.
func (s *Store) SetGroupApproval(groupKey string, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	grouped, err := s.groups()
	if err != nil {
		return err
	}

	eligible, ok := grouped.EligibleMembers[groupKey]
	if !ok {
		return nil
	}
	for _, g := range grouped.Summaries {
		if g.Key == groupKey && !g.Eligible {
			return nil
		}
	}

	for _, idx := range eligible {
		if approved {
			s.approvals[s.claimSet[idx].RowID] = true
		} else {
			delete(s.approvals, s.claimSet[idx].RowID)
		}
	}

	s.version++
	return nil
}

// ApprovedEligibleClaims snapshots the claims that may enter a submission:
// eligible claims whose group is approved under the active method.
func (s *Store) ApprovedEligibleClaims() ([]models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grouped, err := s.groups()
	if err != nil {
		return nil, err
	}

	var result []models.Claim
	for _, g := range grouped.Summaries {
		if !g.Approved {
			continue
		}
		for _, idx := range grouped.EligibleMembers[g.Key] {
			result = append(result, s.claimSet[idx])
		}
	}
	return result, nil
}

// ClaimApprovals returns a copy of the claim-level ledger.
func (s *Store) ClaimApprovals() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]bool, len(s.approvals))
	for k, v := range s.approvals {
		out[k] = v
	}
	return out
}

// Version returns the mutation counter; derived views key their caches on it.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.version
}
