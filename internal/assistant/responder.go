// Package assistant is the data collaborator behind the clinician assistant screen:
// free-text replies and per-patient summaries. Both sit behind small interfaces so a
// live model can replace the keyword responder without touching callers.
package assistant

import (
	"context"
	"errors"
	"strings"
)

var ErrEmptyPrompt = errors.New("message is required")

// Responder answers a clinician's free-text question.
type Responder interface {
	Reply(ctx context.Context, prompt string) (string, error)
}

const (
	diagnosisReply = "Based on the symptoms described (persistent cough, fatigue, and mild fever), the most likely diagnosis is acute bronchitis. I recommend prescribing an antibiotic such as Amoxicillin 500mg three times daily for 7 days, along with a cough suppressant. The patient should rest and increase fluid intake. If symptoms worsen or don't improve within 3-5 days, a follow-up appointment would be advisable to rule out pneumonia."

	treatmentReply = "For the treatment of Type 2 Diabetes with HbA1c of 7.8%, I would recommend the following approach:\n\n" +
		"1. Medication: Continue Metformin 500mg twice daily, consider adding an SGLT2 inhibitor like Empagliflozin 10mg daily\n" +
		"2. Lifestyle modifications: Mediterranean diet, 150 minutes of moderate exercise weekly\n" +
		"3. Blood glucose monitoring: Before breakfast and 2 hours after dinner\n" +
		"4. Follow-up: Schedule lab work in 3 months to reassess HbA1c\n" +
		"5. Referral: Consider nephrology consultation due to early signs of kidney function decline"

	interpretReply = "The lab results show elevated liver enzymes (ALT: 65 U/L, AST: 72 U/L) which may indicate liver inflammation. The patient's lipid panel shows borderline high LDL (145 mg/dL) and low HDL (38 mg/dL), suggesting dyslipidemia. The slightly elevated fasting glucose (118 mg/dL) indicates prediabetes. I recommend lifestyle modifications including reduced alcohol consumption, regular exercise, and a low-fat diet. Consider starting atorvastatin 10mg for cholesterol management and schedule a follow-up liver function test in 6 weeks."

	defaultReply = "I'm here to help with medical questions, diagnostic assistance, treatment recommendations, and interpreting test results. Could you provide more specific information about the patient's condition or what medical guidance you're looking for?"
)

type keywordRule struct {
	keyword string
	reply   string
}

// KeywordResponder returns canned answers chosen by the first keyword found in the
// prompt. Matching is case-insensitive.
type KeywordResponder struct {
	rules    []keywordRule
	fallback string
}

func NewKeywordResponder() *KeywordResponder {
	return &KeywordResponder{
		rules: []keywordRule{
			{keyword: "diagnosis", reply: diagnosisReply},
			{keyword: "treatment", reply: treatmentReply},
			{keyword: "interpret", reply: interpretReply},
		},
		fallback: defaultReply,
	}
}

func (r *KeywordResponder) Reply(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	q := strings.ToLower(strings.TrimSpace(prompt))
	if q == "" {
		return "", ErrEmptyPrompt
	}
	for _, rule := range r.rules {
		if strings.Contains(q, rule.keyword) {
			return rule.reply, nil
		}
	}
	return r.fallback, nil
}
