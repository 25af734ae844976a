package core

// Result, bir plan öğesinin uygulanması sonucunda dönen değerdir.
// Sadece hatayı değil, neyin değiştiğini ve kullanıcıya gösterilecek mesajı da içerir.
type Result struct {
	// ItemID: Sonucun ait olduğu plan öğesi.
	ItemID string

	// Changed: Denetleyicide bir değişiklik yapıldı mı?
	Changed bool

	// Failed: İşlem başarısız mı oldu?
	Failed bool

	// Message: Kullanıcıya gösterilecek insan tarafından okunabilir mesaj.
	Message string

	// Location: Oluşturma işlemlerinde yeni kaynağın yolu.
	Location string

	// Error: Eğer işlem başarısızsa teknik hata detayı.
	Error error
}

// SuccessChange, başarılı ve değişiklik içeren bir sonuç döner.
func SuccessChange(msg string) Result {
	return Result{
		Changed: true,
		Failed:  false,
		Message: msg,
	}
}

// SuccessNoChange, başarılı ama değişiklik içermeyen bir sonuç döner.
func SuccessNoChange(msg string) Result {
	return Result{
		Changed: false,
		Failed:  false,
		Message: msg,
	}
}

// Failure, başarısız bir sonuç döner.
func Failure(err error, msg string) Result {
	return Result{
		Changed: false,
		Failed:  true,
		Message: msg,
		Error:   err,
	}
}

// Summary counts results by outcome.
type Summary struct {
	Changed   int
	Unchanged int
	Failed    int
}

// Summarize folds results into a Summary.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch {
		case r.Failed:
			s.Failed++
		case r.Changed:
			s.Changed++
		default:
			s.Unchanged++
		}
	}
	return s
}
