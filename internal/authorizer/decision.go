package authorizer

// PolicyVersion is the policy language version understood by the gateway.
const PolicyVersion = "2012-10-17"

// InvokeAction is the gateway action controlled by the decision.
const InvokeAction = "execute-api:Invoke"

// DeniedPrincipal is reported as the principal of every denied request. The
// reason for denial is never part of the decision.
const DeniedPrincipal = "user"

type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

type Statement struct {
	Action   string `json:"Action"`
	Effect   Effect `json:"Effect"`
	Resource string `json:"Resource"`
}

type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Response is the authorization decision returned to the gateway.
type Response struct {
	PrincipalID    string         `json:"principalId"`
	PolicyDocument PolicyDocument `json:"policyDocument"`
}

// Effect of the single statement in the decision.
func (r Response) Effect() Effect {
	if len(r.PolicyDocument.Statement) == 0 {
		return EffectDeny
	}
	return r.PolicyDocument.Statement[0].Effect
}

// Allow is a decision granting invoke access to every resource for the
// verified subject.
func Allow(subject string) Response {
	return decision(subject, EffectAllow)
}

// Deny is a decision refusing invoke access to every resource.
func Deny() Response {
	return decision(DeniedPrincipal, EffectDeny)
}

func decision(principal string, effect Effect) Response {
	return Response{
		PrincipalID: principal,
		PolicyDocument: PolicyDocument{
			Version: PolicyVersion,
			Statement: []Statement{
				{
					Action:   InvokeAction,
					Effect:   effect,
					Resource: "*",
				},
			},
		},
	}
}
