package questions

import "github.com/felixgeelhaar/prepwise/internal/exam"

// Ensure every source implements exam.QuestionProvider
var (
	_ exam.QuestionProvider = (*LLMProvider)(nil)
	_ exam.QuestionProvider = (*BankProvider)(nil)
	_ exam.QuestionProvider = (*CachedProvider)(nil)
	_ exam.QuestionProvider = (*FallbackProvider)(nil)
)

// Ensure RedisCache implements Cache
var _ Cache = (*RedisCache)(nil)
