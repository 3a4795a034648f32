package model

// Phase is the lifecycle position of an account's stake.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseStaked
	PhaseUnstakePending
	PhaseEmergencyPending
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "EMPTY"
	case PhaseStaked:
		return "STAKED"
	case PhaseUnstakePending:
		return "UNSTAKE_PENDING"
	case PhaseEmergencyPending:
		return "EMERGENCY_PENDING"
	}
	return "UNKNOWN"
}

// AccountStake is the per-account stake record.
type AccountStake struct {
	Amount             uint64 `json:"amount"`
	LastAccrualTime    int64  `json:"last_accrual_time"`
	UnstakeRequestTime int64  `json:"unstake_request_time"`
	FirstDeposit       bool   `json:"first_deposit"`
	EmergencyArmed     bool   `json:"emergency_armed"`
}

// Phase derives the lifecycle phase from the record's fields.
func (s AccountStake) Phase() Phase {
	switch {
	case s.Amount == 0:
		return PhaseEmpty
	case s.EmergencyArmed:
		return PhaseEmergencyPending
	case s.UnstakeRequestTime != 0:
		return PhaseUnstakePending
	default:
		return PhaseStaked
	}
}
