package model

type LanguageCode string

const (
	LangEnglish    LanguageCode = "en-US"
	LangJapanese   LanguageCode = "ja-JP"
	LangChinese    LanguageCode = "zh-CN"
	LangVietnamese LanguageCode = "vi-VN"
	LangKorean     LanguageCode = "ko-KR"
	LangSpanish    LanguageCode = "es-ES"
)

// LanguageSource tells whether a selection came from the user or the detector.
type LanguageSource string

const (
	LanguageManual   LanguageSource = "manual"
	LanguageDetected LanguageSource = "detected"
)

// Language is one row of the supported-language table.
type Language struct {
	Code        LanguageCode
	DisplayName string
	Voice       string
}

var supportedLanguages = []Language{
	{Code: LangEnglish, DisplayName: "English", Voice: "en-US-JennyNeural"},
	{Code: LangJapanese, DisplayName: "Japanese", Voice: "ja-JP-NanamiNeural"},
	{Code: LangChinese, DisplayName: "Chinese", Voice: "zh-CN-XiaoxiaoNeural"},
	{Code: LangVietnamese, DisplayName: "Vietnamese", Voice: "vi-VN-HoaiMyNeural"},
	{Code: LangKorean, DisplayName: "Korean", Voice: "ko-KR-SunHiNeural"},
	{Code: LangSpanish, DisplayName: "Spanish", Voice: "es-ES-ElviraNeural"},
}

// SupportedLanguages returns a copy of the static language table.
func SupportedLanguages() []Language {
	out := make([]Language, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// LookupLanguage finds a table row by exact code.
func LookupLanguage(code LanguageCode) (Language, bool) {
	for _, l := range supportedLanguages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// LanguageSelection is the active language/voice pair. Voice is always the
// table voice for Code.
type LanguageSelection struct {
	Code   LanguageCode   `json:"code"`
	Voice  string         `json:"voice"`
	Source LanguageSource `json:"source"`
}
