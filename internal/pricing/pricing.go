// Package pricing estimates the monetary cost of a research run from its
// token totals and a configured rate table. All arithmetic is exact decimal;
// float rounding must never leak into stored cost records.
package pricing

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Amn-7/open-deep-research/internal/usage"
)

// DefaultModelKey is the rate-table entry used when the run's model has no
// entry of its own.
const DefaultModelKey = "default"

var perThousand = decimal.NewFromInt(1000)

// Rate is the per-1K-token USD price of one model, split by direction.
type Rate struct {
	Input  decimal.Decimal
	Output decimal.Decimal
}

// Table maps model names to their rates. A Table with no entries estimates
// every run at zero.
type Table struct {
	rates map[string]Rate
}

// rateJSON accepts the object encoding of a table entry. Each direction has
// a long and a short key; the long one wins when both are present.
type rateJSON struct {
	Input  json.Number `json:"input"`
	In     json.Number `json:"in"`
	Output json.Number `json:"output"`
	Out    json.Number `json:"out"`
}

// ParseTable parses a pricing table from its JSON encoding: an object mapping
// model name to either {"input": rate, "output": rate} (with "in"/"out"
// accepted as key aliases) or [input, output], with rates in USD per 1000
// tokens. An empty string yields an empty table. A malformed entry is
// skipped; the remaining valid entries still take effect.
func ParseTable(raw string) (*Table, error) {
	t := &Table{rates: make(map[string]Rate)}
	if raw == "" {
		return t, nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("failed to parse pricing table: %w", err)
	}

	for model, entry := range entries {
		rate, err := parseRate(entry)
		if err != nil {
			continue
		}
		t.rates[model] = rate
	}

	return t, nil
}

func parseRate(entry json.RawMessage) (Rate, error) {
	// Object form.
	var obj rateJSON
	if err := json.Unmarshal(entry, &obj); err == nil {
		in, err := decimalFromNumber(firstNumber(obj.Input, obj.In))
		if err != nil {
			return Rate{}, err
		}
		out, err := decimalFromNumber(firstNumber(obj.Output, obj.Out))
		if err != nil {
			return Rate{}, err
		}
		return Rate{Input: in, Output: out}, nil
	}

	// Array form: [input, output].
	var arr []json.Number
	if err := json.Unmarshal(entry, &arr); err != nil {
		return Rate{}, fmt.Errorf("entry is neither an object nor an array")
	}
	if len(arr) != 2 {
		return Rate{}, fmt.Errorf("array entry must have exactly 2 elements, got %d", len(arr))
	}
	in, err := decimalFromNumber(arr[0])
	if err != nil {
		return Rate{}, err
	}
	out, err := decimalFromNumber(arr[1])
	if err != nil {
		return Rate{}, err
	}
	return Rate{Input: in, Output: out}, nil
}

// firstNumber returns the long-form key's value when set, else the alias.
func firstNumber(long, alias json.Number) json.Number {
	if long != "" {
		return long
	}
	return alias
}

func decimalFromNumber(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid rate %q: %w", n.String(), err)
	}
	return d, nil
}

// Lookup returns the rate for the model, falling back to the "default" entry.
// The second return reports whether any rate was found.
func (t *Table) Lookup(model string) (Rate, bool) {
	if rate, ok := t.rates[model]; ok {
		return rate, true
	}
	rate, ok := t.rates[DefaultModelKey]
	return rate, ok
}

// Estimate computes the run's cost in USD from its token totals. Models absent
// from the table (and with no default entry) cost zero rather than failing
// the run.
func (t *Table) Estimate(model string, totals usage.Totals) decimal.Decimal {
	rate, ok := t.Lookup(model)
	if !ok {
		return decimal.Zero
	}

	in := decimal.NewFromInt(int64(totals.InputTokens)).Div(perThousand).Mul(rate.Input)
	out := decimal.NewFromInt(int64(totals.OutputTokens)).Div(perThousand).Mul(rate.Output)
	return in.Add(out)
}
