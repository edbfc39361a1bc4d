// Package wizard drives the six-step case-submission flow: the draft data
// model, per-step validation, step gating, and durable persistence.
package wizard

// Section names, one per wizard step.
const (
	SectionDetainee   = "detainee"
	SectionDetention  = "detention"
	SectionClient     = "client"
	SectionDocuments  = "documents"
	SectionDelegation = "delegation"
	SectionConsent    = "consent"
)

// StepCount is the number of wizard steps. Step n owns the n-th section
// of SectionOrder.
const StepCount = 6

// SectionOrder maps step numbers (1-based) to section names.
var SectionOrder = [StepCount]string{
	SectionDetainee,
	SectionDetention,
	SectionClient,
	SectionDocuments,
	SectionDelegation,
	SectionConsent,
}

// Section is a flat mapping of field name to value. Values are strings,
// booleans, or nil (nullable string fields such as document references).
type Section map[string]any

// Draft is the in-progress case submission. Every field of every section
// carries a defined default, so the draft is never partially undefined.
type Draft map[string]Section

// NewDraft returns a draft with every field at its default.
func NewDraft() Draft {
	return Draft{
		SectionDetainee: {
			"detainee_name":          "",
			"detainee_id":            "",
			"detainee_date_of_birth": "",
			"health_status":          "",
			"marital_status":         "",
			"governorate":            "",
			"city":                   "",
			"district":               "",
			"notes":                  "",
		},
		SectionDetention: {
			"detention_date":      "",
			"detention_place":     "",
			"detaining_authority": "",
			"last_seen_location":  "",
			"circumstances":       "",
			"has_witnesses":       false,
		},
		SectionClient: {
			"client_name":        "",
			"client_id":          "",
			"client_phone":       "",
			"client_relation":    "",
			"client_governorate": "",
			"client_city":        "",
			"client_district":    "",
		},
		SectionDocuments: {
			"arrest_photo_ref":   nil,
			"medical_report_ref": nil,
			"other_document_ref": nil,
		},
		SectionDelegation: {
			"power_of_attorney_ref": nil,
			"client_id_copy_ref":    nil,
			"delegation_notes":      "",
		},
		SectionConsent: {
			"consent_given":     false,
			"consent_signature": "",
		},
	}
}

// Clone returns a deep copy of the draft.
func (d Draft) Clone() Draft {
	out := make(Draft, len(d))
	for name, sec := range d {
		cp := make(Section, len(sec))
		for k, v := range sec {
			cp[k] = v
		}
		out[name] = cp
	}
	return out
}

// mergeSection shallow-merges partial into sec and reports whether any
// value actually changed. An unchanged merge leaves sec untouched, which
// suppresses the persistence write.
func mergeSection(sec Section, partial map[string]any) bool {
	changed := false
	for k, v := range partial {
		if cur, ok := sec[k]; ok && cur == v {
			continue
		}
		sec[k] = v
		changed = true
	}
	return changed
}

// ReconcileDependent recomputes a child field when its parent changes:
// a new parent value invalidates the child selection. Pure, so the
// dependency between address fields stays explicit and testable.
func ReconcileDependent(newParent, oldParent, child string) string {
	if newParent != oldParent {
		return ""
	}
	return child
}

// addressKeys names each section's governorate/city/district chain. The
// field names are distinct per section so the flattened submission payload
// carries both addresses without collision.
var addressKeys = map[string][3]string{
	SectionDetainee: {"governorate", "city", "district"},
	SectionClient:   {"client_governorate", "client_city", "client_district"},
}

// reconcileAddress clears city when governorate changed and district when
// city changed, comparing against the pre-merge values. A child the merge
// itself assigned is left alone.
func reconcileAddress(sec, before Section, partial map[string]any, keys [3]string) {
	gov, city, district := keys[0], keys[1], keys[2]

	newGov, _ := sec[gov].(string)
	oldGov, _ := before[gov].(string)
	if _, set := partial[city]; !set {
		cur, _ := sec[city].(string)
		sec[city] = ReconcileDependent(newGov, oldGov, cur)
	}

	newCity, _ := sec[city].(string)
	oldCity, _ := before[city].(string)
	if _, set := partial[district]; !set {
		cur, _ := sec[district].(string)
		sec[district] = ReconcileDependent(newCity, oldCity, cur)
	}
}
