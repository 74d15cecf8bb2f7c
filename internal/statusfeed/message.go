package statusfeed

import "github.com/BioHazard786/pastedrop/internal/status"

// Commands accepted from a connected UI.
const (
	CmdCreateConnection        = "createConnection"
	CmdSubmitRemoteDescription = "submitRemoteDescription"
	CmdCopyLocalDescriptor     = "copyLocalDescriptor"
	CmdEnqueueFiles            = "enqueueFiles"
	CmdStartSend               = "startSend"
	CmdDownload                = "download"
)

// Outbound message types.
const (
	TypeStatus = "status"
	TypeReply  = "reply"
)

// Command is a request from a UI.
type Command struct {
	Command string   `json:"command"`
	SDP     string   `json:"sdp,omitempty"`
	Paths   []string `json:"paths,omitempty"`
	Name    string   `json:"name,omitempty"`
	URL     string   `json:"url,omitempty"`
}

// Message is anything the server pushes to a UI: a status snapshot or the
// reply to a command.
type Message struct {
	Type    string           `json:"type"`
	Status  *status.Snapshot `json:"status,omitempty"`
	Command string           `json:"command,omitempty"`
	Result  string           `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func statusMessage(s status.Snapshot) *Message {
	return &Message{Type: TypeStatus, Status: &s}
}

func replyMessage(cmd, result string, err error) *Message {
	m := &Message{Type: TypeReply, Command: cmd, Result: result}
	if err != nil {
		m.Error = err.Error()
	}
	return m
}
