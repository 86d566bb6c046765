package quickdberr

import "os"

// locale table translating each Kind's message key into a user-facing
// string. Default locale comes from QUICKDB_LOCALE, falling back to "en".
var messages = map[string]map[Kind]string{
	"en": {
		KindConnection:    "connection error",
		KindQuery:         "query error",
		KindValidation:    "validation error",
		KindConfig:        "configuration error",
		KindAliasNotFound: "database alias not found",
		KindSerialization: "serialization error",
		KindCache:         "cache error",
		KindIO:            "i/o error",
		KindOther:         "error",
	},
	"zh": {
		KindConnection:    "连接错误",
		KindQuery:         "查询错误",
		KindValidation:    "校验错误",
		KindConfig:        "配置错误",
		KindAliasNotFound: "未找到数据库别名",
		KindSerialization: "序列化错误",
		KindCache:         "缓存错误",
		KindIO:            "I/O 错误",
		KindOther:         "错误",
	},
}

// Locale returns the active locale: QUICKDB_LOCALE if set and known, else "en".
func Locale() string {
	loc := os.Getenv("QUICKDB_LOCALE")
	if _, ok := messages[loc]; ok {
		return loc
	}
	return "en"
}

// Localize returns the user-facing translation of kind in the active locale.
func Localize(kind Kind) string {
	return LocalizeIn(Locale(), kind)
}

// LocalizeIn returns the translation of kind in the given locale, falling
// back to "en" if the locale or key is unknown.
func LocalizeIn(locale string, kind Kind) string {
	if table, ok := messages[locale]; ok {
		if msg, ok := table[kind]; ok {
			return msg
		}
	}
	return messages["en"][kind]
}
