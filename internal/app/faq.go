package app

// FAQQuestions are offered to users as one-click questions. Submitting one
// goes through the normal chat flow.
var FAQQuestions = []string{
	"4대보험 피부양자 등록을 하려면 어떤 서류를 제출해야 하나요?",
	"육아휴직 신청 시 제출해야 할 서류는 무엇인가요?",
	"육아휴직 1년 사용 후 6개월 연장 시 필요한 서류는 무엇인가요?",
	"육아휴직 급여를 얼마나 받을 수 있나요?",
	"출산휴가 후 육아휴직 바로 전환하려면 어떻게 하나요?",
}

func FAQ() []string {
	return append([]string(nil), FAQQuestions...)
}
