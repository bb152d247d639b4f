// Package graph detects proxy networks: payout accounts claimed by more
// applicants than a legitimate household would need.
//
// The graph is bipartite (applicants on one side, payout accounts on the
// other) and is rebuilt from the full claim set on every use. Each applicant
// holds at most one current claim, so adding a claim for an applicant that
// already has one moves its edge.
package graph

import (
	"sort"

	"github.com/mmynk/welfareguard/internal/models"
)

// DefaultDegreeThreshold is the number of claimants an account may have
// before it is treated as a proxy network.
const DefaultDegreeThreshold = 3

// Graph is an undirected bipartite applicant/account graph.
type Graph struct {
	claims    map[string]string              // applicant -> account
	claimants map[string]map[string]struct{} // account -> applicants
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		claims:    make(map[string]string),
		claimants: make(map[string]map[string]struct{}),
	}
}

// Build creates a graph from a registry scan. Claims with an empty side are skipped.
func Build(claims []models.Claim) *Graph {
	g := New()
	for _, c := range claims {
		g.AddClaim(c)
	}
	return g
}

// AddClaim inserts the edge applicant -> account, replacing any previous
// edge for the same applicant.
func (g *Graph) AddClaim(c models.Claim) {
	if c.ApplicantID == "" || c.PayoutAccount == "" {
		return
	}
	if prev, ok := g.claims[c.ApplicantID]; ok {
		if prev == c.PayoutAccount {
			return
		}
		delete(g.claimants[prev], c.ApplicantID)
		if len(g.claimants[prev]) == 0 {
			delete(g.claimants, prev)
		}
	}
	g.claims[c.ApplicantID] = c.PayoutAccount
	set, ok := g.claimants[c.PayoutAccount]
	if !ok {
		set = make(map[string]struct{})
		g.claimants[c.PayoutAccount] = set
	}
	set[c.ApplicantID] = struct{}{}
}

// Degree returns the number of distinct applicants claiming the account.
func (g *Graph) Degree(account string) int {
	return len(g.claimants[account])
}

// Claimants returns the applicants attached to the account, sorted.
func (g *Graph) Claimants(account string) []string {
	set := g.claimants[account]
	out := make([]string, 0, len(set))
	for applicant := range set {
		out = append(out, applicant)
	}
	sort.Strings(out)
	return out
}

// Accounts returns every account node, sorted.
func (g *Graph) Accounts() []string {
	out := make([]string, 0, len(g.claimants))
	for account := range g.claimants {
		out = append(out, account)
	}
	sort.Strings(out)
	return out
}

// Ring is the result of checking one payout account.
type Ring struct {
	Account string
	Degree  int
	Flagged bool

	// Members are the applicants attached to Account other than the candidate.
	// For sweep results it holds every attached applicant.
	Members []string
}

// DetectRing checks the candidate's payout account against the current claim
// set. The candidate edge is always included, whether or not it has been
// persisted yet, so a racing registry scan can never under-count it.
func DetectRing(claims []models.Claim, candidate models.Claim, threshold int) Ring {
	g := Build(claims)
	g.AddClaim(candidate)

	ring := Ring{
		Account: candidate.PayoutAccount,
		Degree:  g.Degree(candidate.PayoutAccount),
	}
	ring.Flagged = ring.Degree > threshold
	if !ring.Flagged {
		return ring
	}
	for _, applicant := range g.Claimants(candidate.PayoutAccount) {
		if applicant != candidate.ApplicantID {
			ring.Members = append(ring.Members, applicant)
		}
	}
	return ring
}

// Sweep returns every account whose degree exceeds the threshold, in account order.
func Sweep(claims []models.Claim, threshold int) []Ring {
	g := Build(claims)
	var rings []Ring
	for _, account := range g.Accounts() {
		degree := g.Degree(account)
		if degree <= threshold {
			continue
		}
		rings = append(rings, Ring{
			Account: account,
			Degree:  degree,
			Flagged: true,
			Members: g.Claimants(account),
		})
	}
	return rings
}
