package email

import "fmt"

func verificationBody(appName, link string) string {
	return fmt.Sprintf(`Olá!

Confirme seu e-mail no %s acessando o link abaixo:

    %s

O link expira em algumas horas e só pode ser usado uma vez.

Se você não criou esta conta, ignore esta mensagem.`, appName, link)
}

func resetBody(appName, link string) string {
	return fmt.Sprintf(`Olá!

Recebemos um pedido para redefinir sua senha no %s. Use o link abaixo:

    %s

O link expira em uma hora e só pode ser usado uma vez.

Se você não fez este pedido, ignore esta mensagem.`, appName, link)
}
