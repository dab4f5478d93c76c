package engine

import "strings"

// kindAliases folds the spellings agents use for the same vulnerability class.
var kindAliases = map[string]string{
	"reentrancy":             "reentrancy",
	"re_entrancy":            "reentrancy",
	"reentrant":              "reentrancy",
	"reentrant_call":         "reentrancy",
	"access_control":         "access_control",
	"missing_access_control": "access_control",
	"unauthorized_access":    "access_control",
	"permission":             "access_control",
	"integer_overflow":       "integer_overflow",
	"integer_underflow":      "integer_overflow",
	"overflow":               "integer_overflow",
	"underflow":              "integer_overflow",
	"arithmetic":             "integer_overflow",
	"flash_loan":             "flash_loan_attack",
	"flashloan":              "flash_loan_attack",
	"flash_loan_attack":      "flash_loan_attack",
	"price_manipulation":     "price_manipulation",
	"oracle_manipulation":    "price_manipulation",
	"price_oracle":           "price_manipulation",
	"governance":             "governance_attack",
	"governance_attack":      "governance_attack",
	"voting_manipulation":    "governance_attack",
	"dos":                    "dos",
	"denial_of_service":      "dos",
	"gas_limit":              "dos",
	"front_running":          "front_running",
	"frontrunning":           "front_running",
	"mev":                    "front_running",
	"sandwich_attack":        "front_running",
	"timestamp_dependence":   "time_manipulation",
	"time_manipulation":      "time_manipulation",
	"block_timestamp":        "time_manipulation",
	"uninitialized_storage":  "uninitialized_storage",
	"delegatecall":           "delegatecall",
	"unsafe_delegatecall":    "delegatecall",
	"tx_origin":              "tx_origin",
	"tx.origin":              "tx_origin",
	"centralization":         "centralization",
	"admin_key":              "centralization",
	"unchecked_call":         "unchecked_call",
	"unchecked_return_value": "unchecked_call",
}

// NormalizeKind lower-snake-cases a category and folds known aliases.
func NormalizeKind(kind string) string {
	k := strings.ToLower(strings.TrimSpace(kind))
	if alias, ok := kindAliases[k]; ok {
		return alias
	}
	k = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r == ' ', r == '-', r == '/', r == '.':
			return '_'
		}
		return -1
	}, k)
	for strings.Contains(k, "__") {
		k = strings.ReplaceAll(k, "__", "_")
	}
	k = strings.Trim(k, "_")
	if alias, ok := kindAliases[k]; ok {
		return alias
	}
	return k
}
