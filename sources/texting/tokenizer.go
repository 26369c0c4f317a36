package texting

import (
	"babelgram/sources/tracing"

	"github.com/pkoukk/tiktoken-go"
)

var tkm, _ = tiktoken.GetEncoding("o200k_base")

func Tokens(log *tracing.Logger, text string) int {
	defer tracing.ProfilePoint(log, "Tokens counted", "texting.tokenizer.tokens")()
	if tkm == nil {
		return len(text) / 4
	}
	return len(tkm.Encode(text, nil, nil))
}
