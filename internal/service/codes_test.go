package service

import (
	"strconv"
	"strings"
	"testing"
)

func TestGenerateAuthCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code := generateAuthCode()
		if len(code) != 4 {
			t.Fatalf("ожидался четырёхзначный код, получили %q", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("код должен быть числовым: %q", code)
		}
		if n < 1000 || n > 9999 {
			t.Fatalf("код %d вне диапазона 1000-9999", n)
		}
	}
}

func TestGenerateInviteCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code := generateInviteCode()
		if len(code) != 6 {
			t.Fatalf("ожидался шестисимвольный код, получили %q", code)
		}
		for _, r := range code {
			if !strings.ContainsRune(inviteCodeAlphabet, r) {
				t.Fatalf("символ %q вне алфавита кода", r)
			}
		}
		seen[code] = struct{}{}
	}
	// 200 кодов из 62^6 вариантов: коллизии всех подряд быть не может.
	if len(seen) < 2 {
		t.Fatalf("генератор возвращает одно и то же значение")
	}
}
