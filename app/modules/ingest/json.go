package ingest

func getString(d map[string]any, key string) string {
	s, _ := d[key].(string)
	return s
}

func getBool(d map[string]any, key string) bool {
	b, _ := d[key].(bool)
	return b
}

func getInt64(d map[string]any, key string) int64 {
	switch v := d[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func stringAt(d map[string]any, keys ...string) string {
	var cur any = d
	for _, key := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = m[key]
		if !ok {
			return ""
		}
	}
	s, _ := cur.(string)
	return s
}
