package exam

import (
	"math/rand/v2"

	"quizrunner/internal/question"
)

// QuestionView is what a user sees for one question: options in presented
// order and no answer key.
type QuestionView struct {
	ID       int      `json:"id"`
	Topic    string   `json:"topic"`
	Text     string   `json:"text"`
	Multiple bool     `json:"multiple"`
	Options  []string `json:"options"`
}

// Shuffler draws an independent option permutation per question. Fairness
// matters here, unpredictability does not.
type Shuffler struct {
	perm func(n int) []int
}

// NewShuffler uses perm as the permutation source. A nil perm falls back to
// the global math/rand/v2 generator, which is safe for concurrent use.
func NewShuffler(perm func(n int) []int) *Shuffler {
	if perm == nil {
		perm = rand.Perm
	}
	return &Shuffler{perm: perm}
}

func (s *Shuffler) Present(bank *question.Bank) (Mapping, []QuestionView) {
	questions := bank.Questions()
	mapping := make(Mapping, len(questions))
	views := make([]QuestionView, 0, len(questions))

	for _, q := range questions {
		p := s.permutation(q.OptionCount())
		mapping[q.ID] = p

		options := make([]string, len(p))
		for presented, canonical := range p {
			options[presented] = q.Options[canonical]
		}
		views = append(views, QuestionView{
			ID:       q.ID,
			Topic:    q.Topic,
			Text:     q.Text,
			Multiple: q.Multiple,
			Options:  options,
		})
	}
	return mapping, views
}

func (s *Shuffler) permutation(n int) []int {
	if n <= 1 {
		return identity(n)
	}
	p := s.perm(n)
	if !isPermutation(p, n) {
		return identity(n)
	}
	return p
}

func identity(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

func isPermutation(p []int, n int) bool {
	if len(p) != n {
		return false
	}
	seen := make([]bool, n)
	for _, v := range p {
		if v < 0 || v >= n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
