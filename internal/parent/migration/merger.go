package migration

import (
	"context"
	"fmt"
	"sort"
	"strings"

	schooldomain "fled-backend/internal/school/domain"
	schoolrepo "fled-backend/internal/school/repository"
	"fled-backend/pkg/identity"

	"github.com/rs/zerolog"
)

// MergePlan merges every parent document sharing one normalized email
type MergePlan struct {
	CanonicalID string
	SourceIDs   []string
	Merged      *schooldomain.Parent
}

// Report summarizes an apply pass
type Report struct {
	Groups         int
	Applied        int
	Failed         int
	Deleted        int
	DeleteFailures int
}

// Merger reconciles duplicate parent documents into canonical ones
type Merger struct {
	parents schoolrepo.ParentRepository
	logger  zerolog.Logger
}

// NewMerger creates a Merger
func NewMerger(parents schoolrepo.ParentRepository, logger zerolog.Logger) *Merger {
	return &Merger{
		parents: parents,
		logger:  logger.With().Str("component", "merger").Logger(),
	}
}

// Plan groups parents by canonical email key. Parents without an email and
// groups that are already a single canonical document are left out.
func (m *Merger) Plan(ctx context.Context) ([]MergePlan, error) {
	all, err := m.parents.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list parents: %w", err)
	}
	m.logger.Info().Int("parents", len(all)).Msg("loaded parent documents")

	groups := make(map[string][]*schooldomain.Parent)
	for _, p := range all {
		key, err := identity.NormalizeEmail(p.Email)
		if err != nil {
			continue
		}
		groups[key] = append(groups[key], p)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var plans []MergePlan
	for _, key := range keys {
		members := groups[key]
		if len(members) == 1 && members[0].ID == key {
			continue
		}
		plans = append(plans, planGroup(key, members))
	}
	return plans, nil
}

func planGroup(key string, members []*schooldomain.Parent) MergePlan {
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].UpdatedAt.After(members[j].UpdatedAt)
	})

	merged := &schooldomain.Parent{
		ID:    key,
		Email: identity.CanonicalEmail(members[0].Email),
	}
	sourceIDs := make([]string, 0, len(members))
	var linked, owners []string
	var tokens []schooldomain.TokenRecord
	seenTokens := make(map[string]struct{})

	for _, p := range members {
		sourceIDs = append(sourceIDs, p.ID)
		if merged.Name == "" {
			merged.Name = strings.TrimSpace(p.Name)
		}
		if merged.Phone == "" {
			merged.Phone = strings.TrimSpace(p.Phone)
		}
		if merged.FCMToken == "" {
			merged.FCMToken = strings.TrimSpace(p.FCMToken)
		}
		linked = append(linked, p.LinkedStudentIDs...)
		owners = append(owners, p.OwnerUIDs...)
		if p.OwnerUID != "" {
			owners = append(owners, p.OwnerUID)
		}
		for _, rec := range p.FCMTokens {
			t := strings.TrimSpace(rec.Token)
			if t == "" {
				continue
			}
			if _, ok := seenTokens[t]; ok {
				continue
			}
			seenTokens[t] = struct{}{}
			rec.Token = t
			tokens = append(tokens, rec)
		}
	}

	merged.LinkedStudentIDs = dedupe(linked)
	merged.OwnerUIDs = dedupe(owners)
	merged.FCMTokens = tokens

	return MergePlan{CanonicalID: key, SourceIDs: sourceIDs, Merged: merged}
}

// Apply writes each canonical document and, only once that write succeeded,
// deletes the group's other members. A failed group does not stop the pass.
func (m *Merger) Apply(ctx context.Context, plans []MergePlan) Report {
	report := Report{Groups: len(plans)}
	for _, plan := range plans {
		log := m.logger.With().Str("canonical_id", plan.CanonicalID).Logger()

		if err := m.parents.MergeCanonical(ctx, plan.Merged); err != nil {
			log.Error().Err(err).Msg("canonical write failed, keeping duplicates")
			report.Failed++
			continue
		}
		report.Applied++

		for _, id := range plan.SourceIDs {
			if id == plan.CanonicalID {
				continue
			}
			if err := m.parents.Delete(ctx, id); err != nil {
				log.Error().Err(err).Str("parent_id", id).Msg("failed to delete duplicate")
				report.DeleteFailures++
				continue
			}
			log.Info().Str("parent_id", id).Msg("deleted duplicate")
			report.Deleted++
		}
	}
	return report
}

// Run plans, logs the plan and applies it when apply is set.
func (m *Merger) Run(ctx context.Context, apply bool) (Report, error) {
	mode := "dry-run"
	if apply {
		mode = "apply"
	}
	m.logger.Info().Str("mode", mode).Msg("starting parent merge")

	plans, err := m.Plan(ctx)
	if err != nil {
		return Report{}, err
	}

	for _, plan := range plans {
		m.logger.Info().
			Str("canonical_id", plan.CanonicalID).
			Strs("source_ids", plan.SourceIDs).
			Str("merged_name", plan.Merged.Name).
			Int("linked_students", len(plan.Merged.LinkedStudentIDs)).
			Int("owner_uids", len(plan.Merged.OwnerUIDs)).
			Int("tokens", len(plan.Merged.FCMTokens)).
			Msg("merge plan")
	}

	if !apply {
		m.logger.Info().Int("groups", len(plans)).Msg("dry-run complete, no changes written")
		return Report{Groups: len(plans)}, nil
	}

	report := m.Apply(ctx, plans)
	m.logger.Info().
		Int("groups", report.Groups).
		Int("applied", report.Applied).
		Int("failed", report.Failed).
		Int("deleted", report.Deleted).
		Int("delete_failures", report.DeleteFailures).
		Msg("parent merge complete")
	return report, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
