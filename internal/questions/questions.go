// Package questions derives the three follow-up suggestions shown under
// the chat from the current session snapshot.
package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"rebot/internal/model"
	"rebot/internal/state"
	"rebot/internal/utils"
)

// Count is the number of suggestions always returned
const Count = 3

// DefaultTimeout bounds one call to the assistant
const DefaultTimeout = 5 * time.Second

// Asker sends a one-off prompt to the assistant and returns its reply
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Generic suggestions for a session with nothing on screen yet
var generic = []string{
	"What's the market like in this area?",
	"What are property taxes like here?",
	"Are home prices rising or falling here?",
	"How do I get pre-approved for a mortgage?",
	"What should I look for during a home inspection?",
}

// Generator produces follow-up questions
type Generator struct {
	asker   Asker
	timeout time.Duration
	log     *zap.Logger
}

// NewGenerator creates a generator. A nil asker means the local
// heuristic is always used.
func NewGenerator(asker Asker, timeout time.Duration, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Generator{asker: asker, timeout: timeout, log: logger.Named("questions")}
}

// Generate returns exactly Count non-empty questions. The assistant's
// answer is used only when it yields a full set; on timeout, error or
// malformed output the heuristic set is returned instead.
func (g *Generator) Generate(ctx context.Context, snap state.Snapshot) []string {
	if g.asker == nil {
		return Heuristic(snap)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	reply, err := g.asker.Ask(ctx, Prompt(snap))
	if err != nil {
		g.log.Info("question generation fell back to heuristic",
			zap.Error(err), zap.Duration("took", time.Since(start)))
		return Heuristic(snap)
	}

	list, err := utils.ParseAIStringList(reply)
	if err != nil {
		g.log.Info("question generation returned malformed output", zap.Error(err))
		return Heuristic(snap)
	}
	picked := pick(list, asked(snap))
	if len(picked) < Count {
		g.log.Info("question generation returned too few usable questions", zap.Int("usable", len(picked)))
		return Heuristic(snap)
	}
	return picked
}

// Prompt builds the classifier prompt for a snapshot
func Prompt(snap state.Snapshot) string {
	uiCtx, _ := json.Marshal(state.UIContext(snap))

	var recent []string
	for i := len(snap.Messages) - 1; i >= 0 && len(recent) < 4; i-- {
		m := snap.Messages[i]
		recent = append(recent, fmt.Sprintf("%s: %s", m.Type, truncate(m.Content, 200)))
	}
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}

	return fmt.Sprintf(`Suggest exactly %d short follow-up questions a home buyer might ask next.
Base them on what is on screen and the recent conversation. Do not repeat questions the user already asked.
Respond ONLY with a JSON array of %d strings.

UI context: %s

Recent conversation:
%s`, Count, Count, uiCtx, strings.Join(recent, "\n"))
}

// Heuristic returns property questions first, then area questions, then
// generic ones, skipping anything the user already asked.
func Heuristic(snap state.Snapshot) []string {
	var candidates []string

	if snap.IsPropertyChat || snap.SelectedProperty != nil {
		candidates = append(candidates, propertyQuestions(snap)...)
	}
	if snap.ZipCode != "" || snap.MarketTrends != nil {
		candidates = append(candidates, areaQuestions(snap)...)
	}
	candidates = append(candidates, generic...)

	out := pick(candidates, asked(snap))
	// the user has asked everything we know; repeat rather than show fewer
	for _, q := range generic {
		if len(out) >= Count {
			break
		}
		if !contains(out, q) {
			out = append(out, q)
		}
	}
	return out[:Count]
}

func propertyQuestions(snap state.Snapshot) []string {
	name := "this home"
	if d := snap.PropertyDetails; d != nil {
		if ref := d.Ref(); ref != nil && ref.Address != "" {
			name = ref.Address
		}
	} else if p := snap.SelectedProperty; p != nil && p.Address != "" {
		name = p.Address
	}

	var qs []string
	if d := snap.PropertyDetails; d != nil {
		if len(d.Schools) > 0 {
			qs = append(qs, fmt.Sprintf("How good are the schools near %s?", name))
		}
		if len(d.Taxes) > 0 {
			qs = append(qs, fmt.Sprintf("How have property taxes changed for %s?", name))
		}
		if len(d.PriceHistory) > 0 {
			qs = append(qs, fmt.Sprintf("What does the price history of %s tell me?", name))
		}
	}
	return append(qs,
		fmt.Sprintf("Is %s fairly priced for the area?", name),
		fmt.Sprintf("What are the pros and cons of %s?", name),
		"How does this home compare to similar listings nearby?",
	)
}

func areaQuestions(snap state.Snapshot) []string {
	area := snap.ZipCode
	if snap.MarketTrends != nil && snap.MarketTrends.Location != "" {
		area = snap.MarketTrends.Location
	}
	if area == "" {
		area = "this area"
	}

	var qs []string
	if snap.MarketTrends != nil {
		qs = append(qs, fmt.Sprintf("Is %s a buyer's or seller's market right now?", area))
	}
	if ld := snap.LocationData; ld != nil {
		if len(ld.Restaurants) > 0 {
			qs = append(qs, fmt.Sprintf("What are the best restaurants in %s?", area))
		}
		if len(ld.Transit) > 0 {
			qs = append(qs, fmt.Sprintf("How is public transit in %s?", area))
		}
		if len(ld.Agents) > 0 {
			qs = append(qs, fmt.Sprintf("Which agents know %s best?", area))
		}
	}
	if len(snap.Properties) > 0 {
		qs = append(qs, fmt.Sprintf("Which listings in %s are the best value?", area))
	}
	return append(qs, fmt.Sprintf("Are home prices rising or falling in %s?", area))
}

func asked(snap state.Snapshot) map[string]bool {
	out := make(map[string]bool)
	for _, m := range snap.Messages {
		if m.Type == model.MessageUser {
			out[normalize(m.Content)] = true
		}
	}
	return out
}

// pick returns up to Count distinct, non-blank questions not in skip
func pick(candidates []string, skip map[string]bool) []string {
	out := make([]string, 0, Count)
	seen := make(map[string]bool)
	for _, q := range candidates {
		q = strings.TrimSpace(q)
		key := normalize(q)
		if q == "" || skip[key] || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
		if len(out) == Count {
			break
		}
	}
	return out
}

func contains(list []string, q string) bool {
	for _, s := range list {
		if normalize(s) == normalize(q) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(s), "?!. "))
}

// truncate cuts s to at most n bytes without splitting a character
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
