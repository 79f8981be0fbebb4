package evm

import "github.com/StrathCole/oracle-validator/pkg/sources"

func init() {
	sources.RegisterPrimary("evm", newAggregatorFromConfig)
	sources.RegisterReference("evm", newAnchoredViewFromConfig)
}
