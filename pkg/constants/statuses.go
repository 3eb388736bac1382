package constants

import "strings"

// --- REQUEST STATUSES (movement/change tickets) ---
const (
	RequestStatusOpen         = "OPEN"
	RequestStatusInValidation = "IN_VALIDATION"
	RequestStatusInExecution  = "IN_EXECUTION"
	RequestStatusCompleted    = "COMPLETED"
	RequestStatusCancelled    = "CANCELLED"
)

// requestEdges is the allowed-edge table for ordinary actors. Terminal
// statuses have no entry.
var requestEdges = map[string][]string{
	RequestStatusOpen:         {RequestStatusInValidation, RequestStatusInExecution, RequestStatusCancelled},
	RequestStatusInValidation: {RequestStatusInExecution, RequestStatusCancelled},
	RequestStatusInExecution:  {RequestStatusCompleted, RequestStatusCancelled},
}

var requestTerminal = []string{
	RequestStatusCompleted,
	RequestStatusCancelled,
}

// --- PROPOSAL STATUSES (sales pipeline) ---
const (
	ProposalStatusUnderReview    = "UNDER_REVIEW"
	ProposalStatusInsurerPending = "INSURER_PENDING"
	ProposalStatusInvoiceIssued  = "INVOICE_ISSUED"
	ProposalStatusImplementing   = "IMPLEMENTING"
	ProposalStatusClientPending  = "CLIENT_PENDING"
	ProposalStatusInsurerAppeal  = "INSURER_APPEAL"
	ProposalStatusDenied         = "DENIED"
	ProposalStatusImplemented    = "IMPLEMENTED"
)

// proposalOrder is the canonical pipeline order. Non-manager actors may only
// move a proposal forward along this order; managers may move it anywhere.
var proposalOrder = []string{
	ProposalStatusUnderReview,
	ProposalStatusInsurerPending,
	ProposalStatusInvoiceIssued,
	ProposalStatusImplementing,
	ProposalStatusClientPending,
	ProposalStatusInsurerAppeal,
	ProposalStatusDenied,
	ProposalStatusImplemented,
}

var proposalTerminal = []string{
	ProposalStatusDenied,
	ProposalStatusImplemented,
}

// legacyProposalStatuses maps the free-form strings the previous system
// stored to the closed vocabulary. Matching is case-insensitive.
var legacyProposalStatuses = map[string]string{
	"em análise":            ProposalStatusUnderReview,
	"em analise":            ProposalStatusUnderReview,
	"pendencias seguradora": ProposalStatusInsurerPending,
	"boleto liberado":       ProposalStatusInvoiceIssued,
	"implantando":           ProposalStatusImplementing,
	"pendente cliente":      ProposalStatusClientPending,
	"pleito seguradora":     ProposalStatusInsurerAppeal,
	"negado":                ProposalStatusDenied,
	"implantado":            ProposalStatusImplemented,
}

func IsRequestStatus(code string) bool {
	if IsRequestTerminal(code) {
		return true
	}
	_, ok := requestEdges[code]
	return ok
}

func IsProposalStatus(code string) bool {
	return proposalIndex(code) >= 0
}

func IsRequestTerminal(code string) bool {
	for _, s := range requestTerminal {
		if s == code {
			return true
		}
	}
	return false
}

func IsProposalTerminal(code string) bool {
	for _, s := range proposalTerminal {
		if s == code {
			return true
		}
	}
	return false
}

// RequestEdgeAllowed reports whether from→to is in the edge table.
func RequestEdgeAllowed(from, to string) bool {
	for _, next := range requestEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ProposalForwardAllowed reports whether from→to moves strictly forward
// along the canonical order. Terminal statuses have no outgoing edges.
func ProposalForwardAllowed(from, to string) bool {
	if IsProposalTerminal(from) {
		return false
	}
	fi, ti := proposalIndex(from), proposalIndex(to)
	if fi < 0 || ti < 0 {
		return false
	}
	return ti > fi
}

func proposalIndex(code string) int {
	for i, s := range proposalOrder {
		if s == code {
			return i
		}
	}
	return -1
}

// ProposalStatusFromLegacy migrates a stored status string to the closed
// enum. Already-migrated codes pass through unchanged.
func ProposalStatusFromLegacy(raw string) (string, bool) {
	if IsProposalStatus(raw) {
		return raw, true
	}
	if code, ok := legacyProposalStatuses[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return code, true
	}
	return "", false
}
