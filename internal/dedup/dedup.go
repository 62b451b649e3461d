package dedup

import (
	"github.com/agnivade/levenshtein"

	"github.com/aitoolsdaily/collector/internal/logger"
	"github.com/aitoolsdaily/collector/internal/models"
)

// editDistance is swappable so tests can assert the identical-name short
// circuit never reaches the edit-distance computation.
var editDistance = levenshtein.ComputeDistance

// Similarity returns the name similarity ratio in [0,1] over normalized
// names: 1 − distance/max(len). Identical normalized names score exactly 1.0
// without computing an edit distance.
func Similarity(a, b string) float64 {
	na := NormalizeName(a)
	nb := NormalizeName(b)

	if na == nb {
		return 1
	}

	ra, rb := []rune(na), []rune(nb)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1
	}

	return 1 - float64(editDistance(na, nb))/float64(maxLen)
}

// Breakdown counts duplicates by the rule that rejected them.
type Breakdown struct {
	URLDuplicates   int `json:"url_duplicates"`   // normalized URL seen in prior history
	NameDuplicates  int `json:"name_duplicates"`  // name similarity against prior history
	BatchDuplicates int `json:"batch_duplicates"` // URL or name collision inside the batch
}

// Result is the outcome of one deduplication pass. The breakdown always sums
// to DuplicateCount.
type Result struct {
	Accepted       []models.Candidate
	DuplicateCount int
	Breakdown      Breakdown
}

// Deduplicator filters a candidate batch against prior tools and itself.
type Deduplicator struct {
	threshold float64
	logger    logger.Logger
}

// NewDeduplicator creates a deduplicator with the given name-similarity
// threshold (0.85 in the default configuration).
func NewDeduplicator(threshold float64, log logger.Logger) *Deduplicator {
	return &Deduplicator{
		threshold: threshold,
		logger:    log,
	}
}

// Run applies the duplicate policy in order, first match wins:
// prior URL, batch URL, prior name similarity, batch name similarity.
// Accepted candidates join the seen sets for later batch comparisons.
func (d *Deduplicator) Run(candidates []models.Candidate, prior []models.Tool) Result {
	existingURLs := make(map[string]struct{}, len(prior))
	existingNames := make([]string, 0, len(prior))
	for i := range prior {
		existingURLs[NormalizeURL(prior[i].URL)] = struct{}{}
		existingNames = append(existingNames, prior[i].Name)
	}

	seenURLs := make(map[string]struct{})
	seenNames := make([]string, 0, len(candidates))

	var result Result

	for _, candidate := range candidates {
		normURL := NormalizeURL(candidate.URL)

		if _, ok := existingURLs[normURL]; ok {
			result.Breakdown.URLDuplicates++
			continue
		}
		if _, ok := seenURLs[normURL]; ok {
			result.Breakdown.BatchDuplicates++
			continue
		}
		if d.anySimilar(candidate.Name, existingNames) {
			result.Breakdown.NameDuplicates++
			continue
		}
		if d.anySimilar(candidate.Name, seenNames) {
			result.Breakdown.BatchDuplicates++
			continue
		}

		seenURLs[normURL] = struct{}{}
		seenNames = append(seenNames, candidate.Name)
		result.Accepted = append(result.Accepted, candidate)
	}

	result.DuplicateCount = result.Breakdown.URLDuplicates +
		result.Breakdown.NameDuplicates + result.Breakdown.BatchDuplicates

	d.logger.Info("Deduplication complete",
		logger.Int("input", len(candidates)),
		logger.Int("accepted", len(result.Accepted)),
		logger.Int("url_duplicates", result.Breakdown.URLDuplicates),
		logger.Int("name_duplicates", result.Breakdown.NameDuplicates),
		logger.Int("batch_duplicates", result.Breakdown.BatchDuplicates),
	)

	return result
}

func (d *Deduplicator) anySimilar(name string, against []string) bool {
	for _, other := range against {
		if Similarity(name, other) >= d.threshold {
			return true
		}
	}
	return false
}
