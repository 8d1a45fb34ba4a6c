package mapping

import "strings"

// pattern maps a set of header keywords to a participant field. Keywords are matched as whole
// words of the normalized header, in the order listed, so "tel" never hits "hotel".
type pattern struct {
	target   string
	keywords []string
}

var patterns = []pattern{
	{target: FieldEmail, keywords: []string{"e-mail", "email", "mail"}},
	{target: FieldParticipantName, keywords: []string{"full name", "participant", "learner", "name"}},
	{target: FieldPhone, keywords: []string{"phone", "telephone", "mobile", "tel"}},
	{target: FieldOrganization, keywords: []string{"organization", "organisation", "company", "employer"}},
	{target: FieldDepartment, keywords: []string{"department", "dept", "division", "team"}},
	{target: FieldRole, keywords: []string{"role", "position", "job"}},
	{target: FieldSubmittedAt, keywords: []string{"submitted", "timestamp", "date"}},
	{target: FieldStatus, keywords: []string{"status", "state"}},
}

// matchPattern returns the field id and keyword of the first pattern hit.
func matchPattern(header string) (target, keyword string, ok bool) {
	h := Normalize(header)
	if h == "" {
		return "", "", false
	}
	padded := " " + h + " "
	for _, p := range patterns {
		for _, kw := range p.keywords {
			if strings.Contains(padded, " "+Normalize(kw)+" ") {
				return p.target, kw, true
			}
		}
	}
	return "", "", false
}
