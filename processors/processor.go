// processors/processor.go
package processors

import (
	"sort"
	"strconv"
	"strings"

	"session-stats-service/models"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/unicode/norm"
)

// Result codes for a full screenshot analysis.
const (
	ResultSuccess      = "Success"
	ResultCheckRequest = "CheckRequest"
	ResultFailed       = "Failed"
)

// WinnerEntry is a lightweight (playerId, playerName) pair attached at
// session/set/match granularity.
type WinnerEntry struct {
	PlayerID   int    `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// StatLine is one recognized stat for one player. StatValue is the coerced
// canonical text value; ReqCheck marks a low-confidence coercion that needs
// human confirmation before commit.
type StatLine struct {
	StatName  string `json:"stat"`
	StatValue string `json:"statValue"`
	ReqCheck  bool   `json:"reqCheck,omitempty"`
}

// ProcessedPlayer is one player's extracted stat line-up for a single match.
type ProcessedPlayer struct {
	PlayerID int        `json:"playerId"`
	Name     string     `json:"name"`
	Stats    []StatLine `json:"stats"`
}

// ResultData is the finalized payload of a successful analysis.
type ResultData struct {
	Players []ProcessedPlayer `json:"players"`
	Winner  []WinnerEntry     `json:"winner"`
}

// Result is the discriminated outcome of ValidateResults / the vision pipeline.
type Result struct {
	Status  string      `json:"status"`
	Data    *ResultData `json:"data,omitempty"`
	Message string      `json:"message"`
}

// RawFieldMap is the recognition service's output: field name → recognized text.
// Field naming is per-game (positional or prefixed keys).
type RawFieldMap map[string]string

// GameProcessor is the per-game business-rule engine. Implementations are
// stateless and safe to share across concurrent requests.
type GameProcessor interface {
	// ProcessPlayers maps recognized fields to player identities and raw stat
	// strings. reqCheckFlag is set when the data is ambiguous or incomplete
	// enough that a human must confirm before commit; it never blocks
	// processing.
	ProcessPlayers(fields RawFieldMap, roster []models.Player) (players []ProcessedPlayer, reqCheckFlag bool)

	// ValidateStats coerces a single raw string into the stat's canonical
	// representation. Never fails — malformed input falls back to a default
	// value with reqCheck set, because manual confirmation is the designed
	// recovery path.
	ValidateStats(raw string, def models.GameStat) (statValue string, reqCheck bool)

	// CalculateWinners applies the game's ranking rule. Deterministic: output
	// is sorted by player id and independent of input ordering.
	CalculateWinners(players []ProcessedPlayer) []WinnerEntry

	// ValidateResults is the final sanity pass over the assembled result.
	ValidateResults(players []ProcessedPlayer, winners []WinnerEntry) Result
}

// --- shared coercion helpers ---

// coerceNumeric normalizes a recognized numeric value. Thousands separators
// and spacing are stripped confidently; letter-for-digit substitutions (O→0,
// l→1) and truncated junk produce a best-effort value with the review flag
// set, and anything unsalvageable falls back to "0" with the flag.
func coerceNumeric(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "0", true
	}
	s = strings.NewReplacer(",", "", " ", "").Replace(s)
	subbed := strings.NewReplacer("O", "0", "o", "0", "l", "1", "I", "1").Replace(s)
	// a substituted digit is a guess, not a read
	flagged := subbed != s
	s = subbed
	neg := strings.HasPrefix(s, "-")
	digits := strings.TrimLeft(s, "-")
	if _, err := strconv.Atoi(digits); err != nil {
		// keep whatever leading digits survived, if any
		i := 0
		for i < len(digits) && digits[i] >= '0' && digits[i] <= '9' {
			i++
		}
		if i == 0 {
			return "0", true
		}
		digits = digits[:i]
		s = digits
		if neg {
			s = "-" + s
		}
		return s, true
	}
	if neg {
		return "-" + digits, flagged
	}
	return digits, flagged
}

// coerceBoolean normalizes a recognized toggle value to "0"/"1". An empty
// field is a confident "0" (unticked); an unrecognized token defaults to "0"
// with the review flag set.
func coerceBoolean(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "no", "false", "-":
		return "0", false
	case "1", "yes", "true", "x", "v", "✓", "✔":
		return "1", false
	default:
		return "0", true
	}
}

// coerceByType dispatches on the stat definition. Shared by every processor's
// ValidateStats.
func coerceByType(raw string, def models.GameStat) (string, bool) {
	if def.Type == models.StatTypeBoolean {
		return coerceBoolean(raw)
	}
	return coerceNumeric(raw)
}

// --- roster name matching ---

// normalizeName folds an OCR'd display name for comparison: transliterate to
// ASCII, normalize width/compatibility forms, lowercase, drop spacing.
func normalizeName(s string) string {
	s = unidecode.Unidecode(norm.NFKC.String(s))
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), "")
}

// matchRosterPlayer resolves a recognized name against the known roster.
// A miss returns nil — callers keep the raw name and raise the review flag.
func matchRosterPlayer(raw string, roster []models.Player) *models.Player {
	want := normalizeName(raw)
	if want == "" {
		return nil
	}
	for i := range roster {
		if normalizeName(roster[i].PlayerName) == want {
			return &roster[i]
		}
	}
	// fall back to prefix matching — screenshots truncate long gamertags
	for i := range roster {
		have := normalizeName(roster[i].PlayerName)
		if len(want) >= 3 && (strings.HasPrefix(have, want) || strings.HasPrefix(want, have)) {
			return &roster[i]
		}
	}
	return nil
}

// sortWinners orders winner lists by player id so results are deterministic
// regardless of input ordering.
func sortWinners(w []WinnerEntry) []WinnerEntry {
	sort.Slice(w, func(i, j int) bool { return w[i].PlayerID < w[j].PlayerID })
	return w
}

// anyReqCheck ORs the per-stat review flags of the processed players.
func anyReqCheck(players []ProcessedPlayer) bool {
	for _, p := range players {
		for _, s := range p.Stats {
			if s.ReqCheck {
				return true
			}
		}
	}
	return false
}

// validateResultsCommon is the shared final sanity pass: no surviving player
// data fails outright; a winner unknown to the processed set fails; otherwise
// Success, downgraded to CheckRequest when any review flag is raised.
func validateResultsCommon(players []ProcessedPlayer, winners []WinnerEntry) Result {
	if len(players) == 0 {
		return Result{Status: ResultFailed, Message: "No player results were processed"}
	}
	known := make(map[int]bool, len(players))
	for _, p := range players {
		known[p.PlayerID] = true
	}
	for _, w := range winners {
		if !known[w.PlayerID] {
			return Result{Status: ResultFailed, Message: "Winner " + w.PlayerName + " is not among the processed players"}
		}
	}
	res := Result{
		Status:  ResultSuccess,
		Data:    &ResultData{Players: players, Winner: winners},
		Message: "Success",
	}
	if anyReqCheck(players) {
		res.Status = ResultCheckRequest
		res.Message = "Some stats need confirmation before saving"
	}
	return res
}
