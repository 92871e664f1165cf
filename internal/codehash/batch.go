package codehash

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BatchQuery looks up the code hashes of several accounts in one GraphQL
// request. Each address gets an alias derived from its position, and the
// response is read back through the same ordered alias list.
type BatchQuery struct {
	aliases   []string
	addresses []string
}

func NewBatchQuery(batch int, addresses []string) BatchQuery {
	q := BatchQuery{
		aliases:   make([]string, len(addresses)),
		addresses: append([]string(nil), addresses...),
	}
	for i := range addresses {
		q.aliases[i] = fmt.Sprintf("a%d_%d", batch, i)
	}
	return q
}

func (q BatchQuery) Len() int { return len(q.addresses) }

// Build renders the query text and its variables. Addresses are always
// passed as variables, never interpolated into the document.
func (q BatchQuery) Build() (string, map[string]any) {
	var sb strings.Builder
	vars := make(map[string]any, len(q.aliases))

	sb.WriteString("query CodeHashes(")
	for i, alias := range q.aliases {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "$%s: String!", alias)
		vars[alias] = q.addresses[i]
	}
	sb.WriteString(") {\n")
	for _, alias := range q.aliases {
		fmt.Fprintf(&sb, "  %s: blockchain { account(address: $%s) { info { code_hash } } }\n", alias, alias)
	}
	sb.WriteString("}")

	return sb.String(), vars
}

type accountEnvelope struct {
	Account *struct {
		Info *struct {
			CodeHash *string `json:"code_hash"`
		} `json:"info"`
	} `json:"account"`
}

// Parse maps a response's data object back to address -> Hash. A null
// account, info or code_hash yields None; a missing alias is an error.
func (q BatchQuery) Parse(data map[string]json.RawMessage) (map[string]Hash, error) {
	out := make(map[string]Hash, len(q.addresses))
	for i, alias := range q.aliases {
		raw, ok := data[alias]
		if !ok {
			return nil, fmt.Errorf("response missing alias %s", alias)
		}

		var env *accountEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode %s: %w", alias, err)
		}

		h := None()
		if env != nil && env.Account != nil && env.Account.Info != nil && env.Account.Info.CodeHash != nil {
			h = Some(*env.Account.Info.CodeHash)
		}
		out[q.addresses[i]] = h
	}
	return out, nil
}
