package extract

import "strings"

var abbreviations = map[string]string{
	// Common Nouns
	"nm": "name", "dt": "date", "no": "number", "cd": "code",
	"desc": "description", "amt": "amount", "cnt": "count", "qty": "quantity",
	"addr": "address", "tel": "phone", "ph": "phone", "mobile": "phone",
	"pwd": "password", "passwd": "password", "pw": "password",
	"img": "image", "pic": "image", "avatar": "image", "url": "url", "link": "url",
	"ip": "ip", "zip": "zipcode", "postal": "zipcode", "postcode": "zipcode",
	"msg": "message", "txt": "text", "tit": "title", "subj": "subject",
	"usr": "user", "emp": "employee", "mail": "email",
	"dept": "department", "grp": "group", "cat": "category",
	"loc": "location", "lat": "latitude", "lng": "longitude", "lon": "longitude",
	"st": "street", "bal": "balance", "avg": "average",

	// Verbs / Status
	"reg": "registered", "mod": "modified", "del": "deleted", "cre": "created",
	"upd": "updated", "yn": "yesno", "stat": "status", "sts": "status",
	"typ": "type", "val": "value", "ord": "order", "seq": "sequence", "idx": "index",
	"is": "yesno", "has": "yesno", "flg": "flag",
}

// columnMeaning expands abbreviated column name parts, e.g. "usr_tel_no" becomes
// "user phone number". The result is matched by substring when picking fake values.
func columnMeaning(colName string) string {
	parts := strings.Split(strings.ToLower(colName), "_")
	decoded := make([]string, 0, len(parts))
	for _, part := range parts {
		if full, ok := abbreviations[part]; ok {
			decoded = append(decoded, full)
		} else {
			decoded = append(decoded, part)
		}
	}
	return strings.Join(decoded, " ")
}
