package naming

import (
	"strings"
	"testing"
)

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"HelloWorld", "hello_world"},
		{"APIName", "api_name"},
		{"IOController", "io_controller"},
		{"UserID", "user_id"},
		{"userID", "user_id"},
		{"Version2Name", "version2_name"},
		{"already_snake", "already_snake"},
		{"ID", "id"},
		{"A", "a"},
		{"getHTTPResponseCode", "get_http_response_code"},
		{"Tenant_Key", "tenant_key"},
		{"ÜberName", "über_name"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ToSnakeCase(tt.in); got != tt.want {
				t.Errorf("ToSnakeCase(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToKebabCase(t *testing.T) {
	tests := map[string]string{
		"HelloWorld":   "hello-world",
		"APIName":      "api-name",
		"IOController": "io-controller",
		"":             "",
	}
	for in, want := range tests {
		if got := ToKebabCase(in); got != want {
			t.Errorf("ToKebabCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToSnakeCaseIdempotent(t *testing.T) {
	for _, in := range []string{"HelloWorld", "APIName", "IOController", "x", "ABC", "aB1C", "snake_case"} {
		once := ToSnakeCase(in)
		if twice := ToSnakeCase(once); twice != once {
			t.Errorf("ToSnakeCase(ToSnakeCase(%q)) = %q, want %q", in, twice, once)
		}
	}
}

func TestToSnakeCaseKeepsInputWithoutUppercase(t *testing.T) {
	in := "already_lower_123"
	if got := ToSnakeCase(in); got != in {
		t.Fatalf("ToSnakeCase(%q) = %q", in, got)
	}
}

func TestExported(t *testing.T) {
	tests := map[string]string{
		"get_user":    "GetUser",
		"GetUserByID": "GetUserByID",
		"type":        "Type",
		"":            "X",
		"9lives":      "X9lives",
	}
	for in, want := range tests {
		if got := Exported(in); got != want {
			t.Errorf("Exported(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUnexported(t *testing.T) {
	tests := map[string]string{
		"GetUser": "getUser",
		"ID":      "id",
		"APIName": "apiName",
		"Type":    "type_",
		"":        "value",
	}
	for in, want := range tests {
		if got := Unexported(in); got != want {
			t.Errorf("Unexported(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"GetUserByID": "get_user_by_id",
		"ListUsers":   "list_users",
		"":            "command",
	}
	for in, want := range tests {
		if got := FileName(in); got != want {
			t.Errorf("FileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReceiverName(t *testing.T) {
	if got := ReceiverName("GetUser"); got != "g" {
		t.Errorf("ReceiverName = %q, want g", got)
	}
	if got := ReceiverName(""); got != "recv" {
		t.Errorf("ReceiverName(\"\") = %q, want recv", got)
	}
}

// FuzzToSnakeCase checks idempotence and the output size bound.
func FuzzToSnakeCase(f *testing.F) {
	f.Add("HelloWorld")
	f.Add("APIName")
	f.Add("IOController")
	f.Add("")
	f.Add("a1B2c3D")
	f.Add("\xff\xfeAbc")

	f.Fuzz(func(t *testing.T, input string) {
		once := ToSnakeCase(input)
		if twice := ToSnakeCase(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", input, once, twice)
		}
		seps, grow := scan(input)
		if len(once) > len(input)+seps+grow {
			t.Fatalf("output %q exceeds bound for %q", once, input)
		}
		if strings.Count(once, "_") < seps {
			t.Fatalf("missing separators in %q", once)
		}
	})
}
