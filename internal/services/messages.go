package services

import "yuva/server/internal/auth"

// User-facing texts.
const (
	MsgListingFieldsMissing = "Lütfen isim, tür, konum ve görsel alanlarını doldurun."
	MsgListingPublished     = "İlanınız başarıyla eklendi!"
	MsgListingPublishFailed = "İlan yayınlanırken bir sorun oluştu."
	MsgListingNotFound      = "İlan bulunamadı."

	MsgAdoptionAuthRequired = "İstek göndermek için giriş yapmalısınız."
	MsgAdoptionSelfRequest  = "Kendi ilanınıza başvuru yapamazsınız."
	MsgAdoptionSent         = "Sahiplenme isteğiniz ilan sahibine iletildi."
	MsgAdoptionFailed       = "İstek gönderilirken bir sorun oluştu."

	MsgSignInFieldsMissing   = "Lütfen e-posta ve şifre alanlarını doldurun."
	MsgSignInBadCredentials  = "E-posta veya şifre hatalı."
	MsgSignInInvalidEmail    = "Geçersiz e-posta formatı."
	MsgSignInTooManyRequests = "Çok fazla hatalı deneme. Lütfen biraz bekleyin."
	MsgSignInFailed          = "Bir hata oluştu."
	MsgSignedIn              = "Giriş yapıldı!"

	MsgSignUpFieldsMissing    = "Lütfen tüm alanları doldurun."
	MsgSignUpPasswordMismatch = "Şifreler birbiriyle eşleşmiyor."
	MsgSignUpEmailInUse       = "Bu e-posta zaten kullanımda."
	MsgSignUpInvalidEmail     = "Geçersiz e-posta adresi."
	MsgSignUpWeakPassword     = "Şifre çok zayıf (en az 6 karakter)."
	MsgSignUpFailed           = "Kayıt başarısız."
	MsgSignedUp               = "Hesabınız oluşturuldu!"
)

// adoptionMessageTemplate is filled with the listing name.
const adoptionMessageTemplate = "%s isimli dostumuzu sahiplenmek istiyorum."

// SignInErrorMessage maps a SignIn failure to the text shown to the user.
func SignInErrorMessage(err error) string {
	if v, ok := asValidation(err); ok {
		return v.Message
	}
	switch auth.CodeOf(err) {
	case auth.CodeUserNotFound, auth.CodeWrongPassword, auth.CodeInvalidCredential:
		return MsgSignInBadCredentials
	case auth.CodeInvalidEmail:
		return MsgSignInInvalidEmail
	case auth.CodeTooManyRequests:
		return MsgSignInTooManyRequests
	default:
		return MsgSignInFailed
	}
}

// SignUpErrorMessage maps a SignUp failure to the text shown to the user.
func SignUpErrorMessage(err error) string {
	if v, ok := asValidation(err); ok {
		return v.Message
	}
	switch auth.CodeOf(err) {
	case auth.CodeEmailAlreadyInUse:
		return MsgSignUpEmailInUse
	case auth.CodeInvalidEmail:
		return MsgSignUpInvalidEmail
	case auth.CodeWeakPassword:
		return MsgSignUpWeakPassword
	default:
		return MsgSignUpFailed
	}
}
