package tutor

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

type HistoryEntry struct {
	Role Role
	Text string
}

// Profile is the learner context the prompts are personalised with.
type Profile struct {
	TargetLanguage string
	Context        string
}

type KnownWord struct {
	SourceWord     string
	TranslatedWord string
}

// Turn is everything the router and specialists see for one inbound message.
type Turn struct {
	UserID     string
	Message    string
	History    []HistoryEntry
	Profile    Profile
	KnownWords []KnownWord
}
