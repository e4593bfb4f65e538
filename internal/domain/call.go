package domain

// Listener is a presence entry: a user who is online and available for a
// direct 1:1 call. Created on going online, deleted on going offline.
type Listener struct {
	UID         UserID `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
	Bio         string `json:"bio,omitempty"`
	LastActive  int64  `json:"lastActive"`
	Busy        bool   `json:"isBusy"`
}

type CallStatus string

const (
	CallPending  CallStatus = "pending"
	CallAccepted CallStatus = "accepted"
	CallRejected CallStatus = "rejected"
	CallTimeout  CallStatus = "timeout"
)

// CallRequest drives the direct-call handshake. The caller enforces the
// pending timeout client-side; acceptance records the room built for the
// call.
type CallRequest struct {
	ID          string     `json:"id"`
	CallerID    UserID     `json:"callerId"`
	CallerName  string     `json:"callerName,omitempty"`
	CallerPhoto string     `json:"callerPhoto,omitempty"`
	ListenerID  UserID     `json:"listenerId"`
	Status      CallStatus `json:"status"`
	CreatedAt   int64      `json:"createdAt"`
	RoomID      RoomID     `json:"roomId,omitempty"`
}
