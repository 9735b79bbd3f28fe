package log

import "fmt"

type token struct {
	key, value string
	inside     rune // shows whether it's inside a given collection, currently [ means it's an array
}

// tokenize splits a `key=value,key=[v1,v2]` configuration line.
func tokenize(line string) ([]token, error) {
	var (
		tokens []token
		t      token
		start  int
		inKey  = true
	)

	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case inKey && c == '=':
			t.key = line[start:i]
			start = i + 1
			inKey = false
			if i+1 < len(line) && line[i+1] == '[' {
				end := -1
				for j := i + 2; j < len(line); j++ {
					if line[j] == ']' {
						end = j
						break
					}
				}
				if end == -1 {
					return nil, fmt.Errorf("array value for key `%s` didn't end", t.key)
				}
				t.value = line[i+2 : end]
				t.inside = '['
				tokens = append(tokens, t)
				t = token{}
				i = end
				if i+1 < len(line) && line[i+1] != ',' {
					return nil, fmt.Errorf("there was no ',' after an array with key '%s'", tokens[len(tokens)-1].key)
				}
				i++
				start = i + 1
				inKey = true
			}
		case c == ',':
			if inKey {
				t.key = line[start:i]
			} else {
				t.value = line[start:i]
				if t.value == "" {
					return nil, fmt.Errorf("key `%s=` with no value", t.key)
				}
			}
			tokens = append(tokens, t)
			t = token{}
			start = i + 1
			inKey = true
		}
	}

	if start < len(line) || !inKey {
		if inKey {
			t.key = line[start:]
		} else {
			t.value = line[start:]
			if t.value == "" {
				return nil, fmt.Errorf("key `%s=` with no value", t.key)
			}
		}
		tokens = append(tokens, t)
	}

	return tokens, nil
}
