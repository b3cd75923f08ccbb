package criteria

import (
	"github.com/homelend/loanflow/service/dao"
)

// FilterByPhase matches a workflow instance phase against an optional Phase
// list parameter; with no parameters everything matches.
func FilterByPhase(phase string, parameters []*dao.Parameter) bool {
	switch len(parameters) {
	case 0:
		return true
	case 1:
		if parameters[0].Name == "Phase" {
			switch actual := parameters[0].Value.(type) {
			case string:
				return phase == actual
			case []string:
				for _, s := range actual {
					if phase == s {
						return true
					}
				}
				return false
			}
		}
	}
	return true
}
