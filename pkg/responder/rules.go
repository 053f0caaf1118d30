package responder

import "strings"

// Intent codes shared by the rule table and the remote classifier.
const (
	IntentGreeting     = "greeting"
	IntentIdentity     = "identity"
	IntentSchoolName   = "school_name"
	IntentClasses      = "classes"
	IntentSchedule     = "schedule"
	IntentRegistration = "registration"
	IntentContact      = "contact"
	IntentAddress      = "address"
	IntentSocial       = "social"
	IntentThanks       = "thanks"
	IntentFarewell     = "farewell"
	IntentUnknown      = "unknown"
)

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

type rule struct {
	intent   string
	keywords []string
	reply    string
}

// The deterministic fallback table. Order matters: the first rule whose
// keyword appears in the text wins.
var rules = []rule{
	{
		intent:   IntentGreeting,
		keywords: []string{"سلام", "درود", "وقت بخیر", "صبح بخیر", "عصر بخیر", "hello", "hi"},
		reply:    "سلام! به پشتیبانی مدرسه خوش آمدید. چطور می‌توانم کمکتان کنم؟",
	},
	{
		intent:   IntentIdentity,
		keywords: []string{"تو کی هستی", "شما کی هستید", "چی هستی", "ربات هستی"},
		reply:    "من دستیار هوشمند پشتیبانی مدرسه هستم و آماده پاسخگویی به سوالات شما درباره کلاس‌ها، ثبت‌نام و برنامه‌ها هستم.",
	},
	{
		intent:   IntentSchoolName,
		keywords: []string{"اسم مدرسه", "نام مدرسه", "این مدرسه چیه"},
		reply:    "نام مدرسه ما دبستان شکوفه‌های دانش است.",
	},
	{
		intent:   IntentClasses,
		keywords: []string{"کلاس", "دوره", "پایه", "درس"},
		reply:    "مدرسه ما کلاس‌های پایه اول تا ششم دبستان را برگزار می‌کند. برای دیدن فهرست کامل کلاس‌ها به بخش کلاس‌های سایت مراجعه کنید.",
	},
	{
		intent:   IntentSchedule,
		keywords: []string{"برنامه", "ساعت", "زمان", "چه روزهایی"},
		reply:    "ساعت کاری مدرسه از شنبه تا چهارشنبه، ۷:۳۰ تا ۱۴:۳۰ است. برنامه هفتگی هر کلاس در پنل دانش‌آموز در دسترس است.",
	},
	{
		intent:   IntentRegistration,
		keywords: []string{"ثبت نام", "ثبت‌نام", "پیش ثبت نام", "نام نویسی", "شرایط پذیرش"},
		reply:    "برای ثبت‌نام: ۱) فرم پیش‌ثبت‌نام سایت را تکمیل کنید ۲) مدارک را بارگذاری کنید ۳) منتظر تماس واحد ثبت‌نام بمانید.",
	},
	{
		intent:   IntentContact,
		keywords: []string{"تماس", "شماره", "تلفن", "ایمیل"},
		reply:    "می‌توانید با شماره ۰۲۱-۱۲۳۴۵۶۷۸ تماس بگیرید یا به info@shokoofeh-school.ir ایمیل بزنید.",
	},
	{
		intent:   IntentAddress,
		keywords: []string{"آدرس", "نشانی", "کجاست", "کجا هست"},
		reply:    "نشانی مدرسه: تهران، خیابان دانش، کوچه شکوفه، پلاک ۱۲.",
	},
	{
		intent:   IntentSocial,
		keywords: []string{"اینستاگرام", "تلگرام", "شبکه اجتماعی", "کانال"},
		reply:    "ما را در اینستاگرام @shokoofeh.school و کانال تلگرام t.me/shokoofehschool دنبال کنید.",
	},
	{
		intent:   IntentThanks,
		keywords: []string{"ممنون", "متشکرم", "مرسی", "تشکر", "سپاس"},
		reply:    "خواهش می‌کنم! اگر سوال دیگری دارید در خدمت هستم.",
	},
	{
		intent:   IntentFarewell,
		keywords: []string{"خداحافظ", "خدانگهدار", "بدرود", "فعلا"},
		reply:    "خدانگهدار! روز خوبی داشته باشید.",
	},
}

const defaultReply = "متوجه سوال شما نشدم. لطفا سوالتان را واضح‌تر بپرسید یا با واحد پشتیبانی مدرسه تماس بگیرید."

// suggestions per intent, capped at three entries each.
var intentSuggestions = map[string][]string{
	IntentGreeting:     {"شرایط ثبت‌نام چیست؟", "برنامه کلاس‌ها را می‌خواهم", "آدرس مدرسه کجاست؟"},
	IntentClasses:      {"برنامه هفتگی کلاس‌ها", "شرایط ثبت‌نام", "هزینه کلاس‌ها"},
	IntentSchedule:     {"برنامه کلاس اول", "ساعت تعطیلی مدرسه", "تقویم امتحانات"},
	IntentRegistration: {"مدارک لازم برای ثبت‌نام", "مهلت ثبت‌نام", "هزینه ثبت‌نام"},
	IntentContact:      {"آدرس مدرسه", "ساعت پاسخگویی تلفن", "شبکه‌های اجتماعی مدرسه"},
	IntentAddress:      {"مسیر رسیدن با مترو", "شماره تماس مدرسه", "ساعت بازدید حضوری"},
}

func matchRule(text string) (rule, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(normalized, kw) {
				return r, true
			}
		}
	}
	return rule{}, false
}

// FallbackReply is the guaranteed-safe deterministic answer.
func FallbackReply(text string) string {
	if r, ok := matchRule(text); ok {
		return r.reply
	}
	return defaultReply
}

// SuggestionsFor returns up to three follow-up suggestions for an intent.
// Unknown intents and empty input yield an empty list, never an error.
func SuggestionsFor(text, intent string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	if s, ok := intentSuggestions[intent]; ok {
		if len(s) > 3 {
			s = s[:3]
		}
		out := make([]string, len(s))
		copy(out, s)
		return out
	}
	return []string{}
}
