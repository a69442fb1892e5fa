package agent

import (
	"encoding/json"
	"strings"
)

// streamEvent is the envelope of one stream-json output line.
// Only the fields the supervisor acts on are decoded; unknown
// shapes pass through untouched.
type streamEvent struct {
	Type         string        `json:"type"`
	Subtype      string        `json:"subtype"`
	SessionID    string        `json:"session_id"`
	IsError      bool          `json:"is_error"`
	Result       string        `json:"result"`
	TotalCostUSD *float64      `json:"total_cost_usd"`
	Usage        *usageBlock   `json:"usage"`
	Message      *messageBlock `json:"message"`
}

type usageBlock struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type messageBlock struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// approvalMarker is the token an agent prints when it wants a human
// sign-off before continuing. The prompt preamble instructs the agent
// to emit it on its own line.
const approvalMarker = "[APPROVAL_REQUIRED]"

// streamState accumulates what the supervisor learned from the
// output stream of one run.
type streamState struct {
	sessionID    string
	costUSD      float64
	inputTokens  int
	outputTokens int
	resultSeen   bool
	resultErr    bool
	resultText   string
}

// observe inspects one output line. It returns true when the line
// signals an approval request.
func (st *streamState) observe(line string) bool {
	var ev streamEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		return false
	}

	if ev.SessionID != "" {
		st.sessionID = ev.SessionID
	}

	switch ev.Type {
	case "control_request":
		return true
	case "assistant":
		return assistantAsksApproval(ev.Message)
	case "result":
		st.resultSeen = true
		st.resultErr = ev.IsError
		st.resultText = ev.Result
		if ev.TotalCostUSD != nil {
			st.costUSD = *ev.TotalCostUSD
		}
		if ev.Usage != nil {
			st.inputTokens = ev.Usage.InputTokens
			st.outputTokens = ev.Usage.OutputTokens
		}
	}
	return false
}

func assistantAsksApproval(msg *messageBlock) bool {
	if msg == nil {
		return false
	}
	for _, block := range msg.Content {
		if block.Type == "text" && strings.Contains(block.Text, approvalMarker) {
			return true
		}
	}
	return false
}
