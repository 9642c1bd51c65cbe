package model

// PoolState is the lifecycle stage of a pool.
type PoolState uint8

const (
	Uninitialized PoolState = iota
	Bootstrapped
)

func (s PoolState) String() string {
	if s == Bootstrapped {
		return "bootstrapped"
	}
	return "uninitialized"
}

func (s PoolState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
