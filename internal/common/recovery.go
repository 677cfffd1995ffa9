package common

// RecoveryQuestions lists the security questions offered at registration,
// keyed by the ID stored with the account.
var RecoveryQuestions = map[int]string{
	1: "What was the name of your first pet?",
	2: "In which city were you born?",
	3: "What is your mother's maiden name?",
	4: "What was the model of your first car?",
	5: "What was the name of your primary school?",
}

// RecoveryQuestionIDs returns the question IDs in ascending order.
func RecoveryQuestionIDs() []int {
	ids := make([]int, 0, len(RecoveryQuestions))
	for id := 1; len(ids) < len(RecoveryQuestions); id++ {
		if _, ok := RecoveryQuestions[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
