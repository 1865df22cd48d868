// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package analysis

// lexicon maps case-folded words to a polarity of +1 or -1.
var lexicon = map[string]int{
	// positive
	"good": 1, "great": 1, "excellent": 1, "amazing": 1, "awesome": 1,
	"love": 1, "loved": 1, "like": 1, "enjoy": 1, "happy": 1, "glad": 1,
	"nice": 1, "wonderful": 1, "fantastic": 1, "best": 1, "better": 1,
	"brilliant": 1, "helpful": 1, "thanks": 1, "thank": 1, "perfect": 1,
	"beautiful": 1, "success": 1, "successful": 1, "win": 1, "fun": 1,
	"hope": 1, "bright": 1, "calm": 1, "safe": 1, "welcome": 1,

	// negative
	"bad": -1, "terrible": -1, "awful": -1, "horrible": -1, "hate": -1,
	"hated": -1, "sad": -1, "angry": -1, "worst": -1, "worse": -1,
	"poor": -1, "broken": -1, "fail": -1, "failed": -1, "failure": -1,
	"error": -1, "wrong": -1, "ugly": -1, "annoying": -1, "boring": -1,
	"problem": -1, "danger": -1, "dangerous": -1, "fear": -1, "pain": -1,
	"dark": -1, "lost": -1, "crash": -1, "glitch": -1, "corrupt": -1,
}

// negators flip the polarity of the word that follows them.
var negators = map[string]bool{
	"not": true, "no": true, "never": true, "don't": true, "isn't": true,
	"wasn't": true, "can't": true, "won't": true, "didn't": true,
}

// informalWords count against formality.
var informalWords = map[string]bool{
	"hey": true, "hi": true, "yeah": true, "yep": true, "nope": true,
	"gonna": true, "wanna": true, "gotta": true, "kinda": true, "sorta": true,
	"lol": true, "ok": true, "okay": true, "cool": true, "stuff": true,
	"guys": true, "dude": true, "wow": true, "btw": true, "omg": true,
}

// stopwords are ignored when measuring topical overlap.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"to": true, "of": true, "in": true, "on": true, "at": true, "for": true,
	"with": true, "by": true, "as": true, "it": true, "its": true, "this": true,
	"that": true, "these": true, "those": true, "i": true, "you": true, "he": true,
	"she": true, "we": true, "they": true, "me": true, "my": true, "your": true,
	"our": true, "their": true, "from": true, "so": true, "if": true, "then": true,
	"than": true, "do": true, "does": true, "did": true, "have": true, "has": true,
	"had": true, "not": true, "no": true, "can": true, "will": true, "would": true,
}
