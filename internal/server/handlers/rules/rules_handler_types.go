package rules

// AddRuleRequest registers one rule under a uid. UID is a pointer so
// uid 0 (root) survives required-field binding.
type AddRuleRequest struct {
	UID  *uint32 `json:"uid" binding:"required"`
	Rule string  `json:"rule"`
}

type AddRuleResponse struct {
	UID   uint32 `json:"uid"`
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}

type RemoveRuleRequest struct {
	UID  *uint32 `json:"uid" binding:"required"`
	Rule string  `json:"rule"`
}

type RemoveRuleResponse struct {
	UID   uint32 `json:"uid"`
	Rule  string `json:"rule"`
	Found bool   `json:"found"`
}

type RuleEntry struct {
	UID  uint32 `json:"uid"`
	Rule string `json:"rule"`
}

type ListRulesResponse struct {
	Rules []RuleEntry `json:"rules"`
	Count int         `json:"count"`
}
