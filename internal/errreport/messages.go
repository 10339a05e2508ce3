package errreport

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys of the diagnostic view.
const (
	msgError      = "diagnostic.error"
	msgErrorIn    = "diagnostic.error_in"
	msgAdditional = "diagnostic.additional_info"
	msgFile       = "diagnostic.file"
	msgLine       = "diagnostic.line"
	msgTitle      = "diagnostic.title"
)

var supported = []language.Tag{language.English, language.SimplifiedChinese}

var matcher = language.NewMatcher(supported)

func init() {
	catalog := map[language.Tag]map[string]string{
		language.English: {
			msgTitle:      "The game could not start",
			msgError:      "Error",
			msgErrorIn:    "Error in %s",
			msgAdditional: "Additional information",
			msgFile:       "File: %s",
			msgLine:       "Line: %d",
		},
		language.SimplifiedChinese: {
			msgTitle:      "游戏无法启动",
			msgError:      "错误",
			msgErrorIn:    "错误位置 %s",
			msgAdditional: "附加信息",
			msgFile:       "文件: %s",
			msgLine:       "行号: %d",
		},
	}
	for tag, entries := range catalog {
		for key, msg := range entries {
			_ = message.SetString(tag, key, msg)
		}
	}
}

// matchLanguage picks the closest supported language for a BCP 47 string.
// Unknown or empty input selects English.
func matchLanguage(lang string) language.Tag {
	if lang == "" {
		return language.English
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	_, idx, _ := matcher.Match(tag)
	return supported[idx]
}
