package core

import (
	"fmt"
	"strings"
)

// QuestionType is the inferred intent of a user question.
type QuestionType string

const (
	QuestionFactual     QuestionType = "factual"
	QuestionAnalytical  QuestionType = "analytical"
	QuestionMeta        QuestionType = "meta"
	QuestionExploratory QuestionType = "exploratory"
	QuestionComparative QuestionType = "comparative"
	QuestionCreative    QuestionType = "creative"
)

// QuestionTypes lists every supported question type.
var QuestionTypes = []QuestionType{
	QuestionFactual,
	QuestionAnalytical,
	QuestionMeta,
	QuestionExploratory,
	QuestionComparative,
	QuestionCreative,
}

// ParseQuestionType normalizes s and checks it names a known question type.
func ParseQuestionType(s string) (QuestionType, error) {
	qt := QuestionType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range QuestionTypes {
		if qt == known {
			return qt, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported question type %q", ErrValidation, s)
}

// CollectionQuery is one collection a profile fans out to.
type CollectionQuery struct {
	Name CollectionName `json:"name" yaml:"name"`
	TopK int            `json:"top_k" yaml:"top_k"`
}

// ClusterStrategy selects the grouping key for evidence clusters.
type ClusterStrategy string

const (
	// ClusterByTheme groups by the chunk's key_theme, falling back to doc id.
	ClusterByTheme ClusterStrategy = "theme"
	// ClusterByDoc groups by doc id.
	ClusterByDoc ClusterStrategy = "doc"
)

// ClusteringConfig configures optional evidence clustering.
type ClusteringConfig struct {
	Strategy            ClusterStrategy `json:"strategy" yaml:"strategy"`
	MaxClusters         int             `json:"max_clusters" yaml:"max_clusters"`
	MinChunksPerCluster int             `json:"min_chunks_per_cluster" yaml:"min_chunks_per_cluster"`
}

// RetrievalProfile is the per-question-type retrieval configuration. Loaded
// once and never mutated for the process lifetime.
type RetrievalProfile struct {
	Name          string            `json:"mode_name" yaml:"mode_name"`
	Collections   []CollectionQuery `json:"collections" yaml:"collections"`
	TopK          int               `json:"top_k" yaml:"top_k"`
	MinDocs       int               `json:"min_docs" yaml:"min_docs"`
	ExpandQueries bool              `json:"expand_queries" yaml:"expand_queries"`
	Clustering    *ClusteringConfig `json:"clustering,omitempty" yaml:"clustering,omitempty"`
}

// Validate checks the profile is usable.
func (p RetrievalProfile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: retrieval profile has no mode_name", ErrValidation)
	}
	if len(p.Collections) == 0 {
		return fmt.Errorf("%w: profile %s has no collections", ErrValidation, p.Name)
	}
	for _, c := range p.Collections {
		if !c.Name.Valid() {
			return fmt.Errorf("%w: profile %s references unknown collection %q", ErrValidation, p.Name, c.Name)
		}
		if c.TopK <= 0 {
			return fmt.Errorf("%w: profile %s collection %s needs top_k > 0", ErrValidation, p.Name, c.Name)
		}
	}
	if p.TopK <= 0 {
		return fmt.Errorf("%w: profile %s needs top_k > 0", ErrValidation, p.Name)
	}
	if p.MinDocs < 0 {
		return fmt.Errorf("%w: profile %s has negative min_docs", ErrValidation, p.Name)
	}
	if c := p.Clustering; c != nil {
		if c.Strategy != ClusterByTheme && c.Strategy != ClusterByDoc {
			return fmt.Errorf("%w: profile %s has unknown clustering strategy %q", ErrValidation, p.Name, c.Strategy)
		}
		if c.MaxClusters <= 0 {
			return fmt.Errorf("%w: profile %s needs clustering.max_clusters > 0", ErrValidation, p.Name)
		}
	}
	return nil
}

// DefaultProfiles returns the built-in profile per question type.
func DefaultProfiles() map[QuestionType]RetrievalProfile {
	return map[QuestionType]RetrievalProfile{
		QuestionFactual: {
			Name:        string(QuestionFactual),
			Collections: []CollectionQuery{{Name: CollectionPrimary, TopK: 5}},
			TopK:        5,
		},
		QuestionAnalytical: {
			Name: string(QuestionAnalytical),
			Collections: []CollectionQuery{
				{Name: CollectionPrimary, TopK: 20},
				{Name: CollectionSummary, TopK: 10},
				{Name: CollectionIntents, TopK: 10},
			},
			TopK:          20,
			MinDocs:       3,
			ExpandQueries: true,
			Clustering:    &ClusteringConfig{Strategy: ClusterByTheme, MaxClusters: 6, MinChunksPerCluster: 1},
		},
		QuestionComparative: {
			Name: string(QuestionComparative),
			Collections: []CollectionQuery{
				{Name: CollectionPrimary, TopK: 15},
				{Name: CollectionSummary, TopK: 10},
				{Name: CollectionDocSum, TopK: 5},
			},
			TopK:       15,
			MinDocs:    3,
			Clustering: &ClusteringConfig{Strategy: ClusterByDoc, MaxClusters: 6, MinChunksPerCluster: 1},
		},
		QuestionExploratory: {
			Name: string(QuestionExploratory),
			Collections: []CollectionQuery{
				{Name: CollectionPrimary, TopK: 10},
				{Name: CollectionSummary, TopK: 10},
				{Name: CollectionIntents, TopK: 10},
			},
			TopK:       15,
			MinDocs:    2,
			Clustering: &ClusteringConfig{Strategy: ClusterByTheme, MaxClusters: 6, MinChunksPerCluster: 1},
		},
		QuestionMeta: {
			Name: string(QuestionMeta),
			Collections: []CollectionQuery{
				{Name: CollectionDocSum, TopK: 10},
				{Name: CollectionSummary, TopK: 5},
			},
			TopK: 10,
		},
		QuestionCreative: {
			Name: string(QuestionCreative),
			Collections: []CollectionQuery{
				{Name: CollectionPrimary, TopK: 8},
				{Name: CollectionSummary, TopK: 8},
			},
			TopK: 10,
		},
	}
}
