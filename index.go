package main

import "net/http"

const lobbyHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>cinder</title>
<style>
*{margin:0;padding:0;box-sizing:border-box}
:root{--bg:#191919;--card:#242424;--border:#333;--fg:#e5e5e5;--muted:#737373;--accent:#4ade80}
body{font-family:system-ui,-apple-system,sans-serif;background:var(--bg);color:var(--fg);
min-height:100vh;display:flex;align-items:center;justify-content:center;padding:24px}
.container{width:100%;max-width:400px;display:flex;flex-direction:column;gap:16px}
h1{font-size:18px;color:var(--accent);text-align:center}
.sub{font-size:12px;color:var(--muted);text-align:center;margin-bottom:8px}
.card{background:var(--card);border:1px solid var(--border);border-radius:6px;padding:16px;
display:flex;flex-direction:column;gap:10px}
input{background:var(--bg);border:1px solid var(--border);color:var(--fg);padding:10px;
border-radius:4px;font-size:13px}
button{background:var(--fg);color:#000;border:0;padding:10px;border-radius:4px;
font-weight:600;cursor:pointer;font-size:13px}
button.alt{background:var(--card);color:var(--muted);border:1px solid var(--border)}
#err{display:none;background:rgba(239,68,68,.15);color:#f87171;padding:10px;
border-radius:4px;font-size:12px;text-align:center}
</style>
</head>
<body>
<div class="container">
<h1>&gt;cinder</h1>
<div class="sub">A private, self-destructing chat room.</div>
<div id="err"></div>
<div class="card">
<input id="password" type="password" placeholder="Room password (optional)">
<button id="create">CREATE ROOM</button>
</div>
<div class="card">
<input id="join" type="text" placeholder="Paste Room ID here...">
<button id="joinBtn" class="alt">JOIN EXISTING ROOM</button>
</div>
</div>
<script>
(function(){
var reason=new URLSearchParams(location.search).get('error');
if(reason){
var e=document.getElementById('err');
e.textContent=reason==='room-full'?'That room is full.':'Room not found or expired.';
e.style.display='block';
}
document.getElementById('create').onclick=function(){
var password=document.getElementById('password').value;
fetch('/api/room',{method:'POST',headers:{'Content-Type':'application/json'},
body:JSON.stringify(password?{password:password}:{})})
.then(function(r){if(r.status===429)throw new Error('Too many rooms created, wait a minute.');
if(!r.ok)throw new Error('Failed to create room.');return r.json()})
.then(function(j){if(password)sessionStorage.setItem('pending_pass_'+j.roomId,password);
location.href='/room/'+j.roomId})
.catch(function(err){alert(err.message)});
};
document.getElementById('joinBtn').onclick=function(){
var id=document.getElementById('join').value.trim();
if(id)location.href='/room/'+id;
};
})();
</script>
</body>
</html>`

const roomHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>cinder room</title>
<style>
*{margin:0;padding:0;box-sizing:border-box}
:root{--bg:#191919;--card:#242424;--border:#333;--fg:#e5e5e5;--muted:#737373;--accent:#4ade80}
body{font-family:system-ui,-apple-system,sans-serif;background:var(--bg);color:var(--fg);
height:100vh;display:flex;flex-direction:column;padding:16px;gap:10px}
header{display:flex;justify-content:space-between;align-items:center;font-size:12px;color:var(--muted)}
#ttl{color:var(--accent)}
#feed{flex:1;overflow-y:auto;background:var(--card);border:1px solid var(--border);
border-radius:6px;padding:12px;font-size:13px;display:flex;flex-direction:column;gap:6px}
.sys{color:var(--muted);font-style:italic}
.who{color:var(--accent);margin-right:6px}
form{display:flex;gap:8px}
input{flex:1;background:var(--card);border:1px solid var(--border);color:var(--fg);
padding:10px;border-radius:4px;font-size:13px}
button{background:var(--fg);color:#000;border:0;padding:10px 14px;border-radius:4px;
font-weight:600;cursor:pointer}
#destroy{background:rgba(239,68,68,.15);color:#f87171}
</style>
</head>
<body>
<header><span id="room"></span><span id="ttl"></span><button id="destroy">DESTROY</button></header>
<div id="feed"></div>
<form id="send"><input id="msg" autocomplete="off" placeholder="Message..."><button>SEND</button></form>
<script>
(function(){
var roomId=location.pathname.split('/').pop();
document.getElementById('room').textContent=roomId;
var username=localStorage.getItem('chat_username');
if(!username){username='anonymous-'+Math.random().toString(36).slice(2,7);
localStorage.setItem('chat_username',username)}
var feed=document.getElementById('feed');
function line(cls,who,text){var d=document.createElement('div');if(cls)d.className=cls;
if(who){var s=document.createElement('span');s.className='who';s.textContent=who;d.appendChild(s)}
d.appendChild(document.createTextNode(text));feed.appendChild(d);feed.scrollTop=feed.scrollHeight}
fetch('/api/room/'+roomId+'/meta').then(function(r){
if(!r.ok){location.href='/?error=room-not-found';return}
return r.json()}).then(function(meta){
if(!meta)return;
var left=meta.ttl;
setInterval(function(){left--;if(left<=0){location.href='/?error=room-not-found'}
document.getElementById('ttl').textContent=Math.floor(left/60)+':'+('0'+left%60).slice(-2)},1000);
var password='';
if(meta.passwordRequired){
password=sessionStorage.getItem('pending_pass_'+roomId)||prompt('Room password:')||'';
}
var proto=location.protocol==='https:'?'wss://':'ws://';
var ws=new WebSocket(proto+location.host+'/ws?room='+encodeURIComponent(roomId)+
'&username='+encodeURIComponent(username)+'&password='+encodeURIComponent(password));
ws.onmessage=function(ev){
var e=JSON.parse(ev.data);
if(e.type==='error'){line('sys','',e.message);ws.close();return}
if(e.type==='user-joined'){line('sys','',e.username+' joined');return}
if(e.type==='user-left'){line('sys','',e.username+' left');return}
if(e.type==='receive-message'){line('','<'+e.username+'>',String(e.content))}
};
ws.onclose=function(){line('sys','','disconnected')};
document.getElementById('send').onsubmit=function(ev){
ev.preventDefault();
var input=document.getElementById('msg');
if(!input.value)return;
ws.send(JSON.stringify({type:'send-message',content:input.value}));
line('','<'+username+'>',input.value);
input.value='';
};
});
document.getElementById('destroy').onclick=function(){
fetch('/api/room/'+roomId+'/destroy',{method:'POST'}).then(function(){location.href='/'})
};
})();
</script>
</body>
</html>`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(lobbyHTML))
}
