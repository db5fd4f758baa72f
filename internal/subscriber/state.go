package subscriber

// State is a connection's position in the subscription lifecycle (§4.4):
//
//	Accepted --Connect--> Connected --DefineOps--> ModesSet --Subscribe--> Subscribed
//	                                                    ^                       |
//	                                                    +------ Unsubscribe ----+
//	                           Stop, error, EOF (from any state) --> Terminated
type State int32

const (
	StateAccepted State = iota
	StateConnected
	StateModesSet
	StateSubscribed
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAccepted:
		return "Accepted"
	case StateConnected:
		return "Connected"
	case StateModesSet:
		return "ModesSet"
	case StateSubscribed:
		return "Subscribed"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}
